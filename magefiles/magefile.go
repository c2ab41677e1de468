//go:build mage

// Package main provides build targets for bunbetsu using Mage.
//
// Usage:
//
//	mage build            Compile the bunbetsu binary to bin/
//	mage test             Run all tests
//	mage testPostgres     Run store tests against $BUNBETSU_TEST_POSTGRES_DSN
//	mage lint             Run golangci-lint
//	mage serve            Build, seed a dev catalog, and serve it
//	mage clean            Remove build artifacts
//	mage install          Install bunbetsu to GOPATH/bin
//	mage stats            Print Go lines of code
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "bunbetsu"
	binaryDir  = "bin"
	cmdDir     = "./cmd/bunbetsu"
	devDir     = ".bunbetsu-dev"
)

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}

// Build compiles the bunbetsu binary to bin/, stamping the version from git.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", binaryPath(), cmdDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// TestPostgres runs the store tests against a PostgreSQL database.
func TestPostgres() error {
	if os.Getenv("BUNBETSU_TEST_POSTGRES_DSN") == "" {
		return errors.New("BUNBETSU_TEST_POSTGRES_DSN is not set")
	}
	return sh.RunV(binGo, "test", "-run", "Postgres", "-v", "./internal/store/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds the binary, seeds a development catalog under .bunbetsu-dev,
// and serves it in the foreground.
func Serve() error {
	mg.Deps(Build)
	dirs := []string{
		"--config-dir", filepath.Join(devDir, "config"),
		"--data-dir", filepath.Join(devDir, "data"),
	}
	if err := sh.RunV(binaryPath(), append([]string{"init", "--seed"}, dirs...)...); err != nil {
		return err
	}
	return sh.RunV(binaryPath(), append([]string{"serve", "--log-level", "debug"}, dirs...)...)
}

// Clean removes build artifacts and the development catalog.
func Clean() error {
	for _, dir := range []string{binaryDir, devDir} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}

// Stats prints Go lines of code, split into production and test code.
func Stats() error {
	var prodLines, testLines int
	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch path {
			case "vendor", ".git", binaryDir, "magefiles", "_examples", devDir:
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, err := countLines(path)
		if err != nil {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			testLines += count
		} else {
			prodLines += count
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Lines of code (Go, total):      %d\n", prodLines+testLines)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
