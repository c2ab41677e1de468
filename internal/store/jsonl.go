// This file provides catalog export and import as JSONL, one record per line.
// Exports are written atomically with the temp-file, fsync, rename pattern.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Record kinds in a catalog JSONL file.
const (
	RecordCategory = "category"
	RecordItem     = "item"
)

// Record is one line of a catalog JSONL file. Items refer to their category
// by name so a file can be imported into a catalog with different IDs.
type Record struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Color         string `json:"color,omitempty"`
	Category      string `json:"category,omitempty"`
	Note          string `json:"note,omitempty"`
	SearchAliases string `json:"searchAliases,omitempty"`
}

// ImportStats counts the rows touched by Import.
type ImportStats struct {
	CategoriesCreated int `json:"categoriesCreated"`
	CategoriesUpdated int `json:"categoriesUpdated"`
	ItemsCreated      int `json:"itemsCreated"`
	ItemsUpdated      int `json:"itemsUpdated"`
}

// Export writes every category followed by every item to path.
func (b *Backend) Export(ctx context.Context, path string) error {
	cats, err := b.Categories(ctx)
	if err != nil {
		return err
	}
	items, err := b.ItemViews(ctx)
	if err != nil {
		return err
	}

	records := make([]json.RawMessage, 0, len(cats.Rows)+len(items.Rows))
	for _, c := range cats.Rows {
		rec, err := json.Marshal(Record{Type: RecordCategory, Name: c.Name, Color: c.Color})
		if err != nil {
			return fmt.Errorf("encoding category %d: %w", c.ID, err)
		}
		records = append(records, rec)
	}
	for _, it := range items.Rows {
		rec, err := json.Marshal(Record{
			Type:          RecordItem,
			Name:          it.Name,
			Category:      it.GarbageCategory,
			Note:          it.Note,
			SearchAliases: it.SearchAliases,
		})
		if err != nil {
			return fmt.Errorf("encoding item %d: %w", it.ID, err)
		}
		records = append(records, rec)
	}
	return writeJSONL(path, records)
}

// ReadRecords reads a catalog JSONL file. Blank lines, malformed lines, and
// records of unknown type are skipped.
func ReadRecords(path string) ([]Record, error) {
	raw, err := readJSONL(path)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, line := range raw {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Type != RecordCategory && rec.Type != RecordItem {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Import upserts records by name: categories first, then items. Item records
// name their category, which must exist in the catalog or earlier in records.
// Returns ErrInvalidCategory for an item whose category cannot be resolved
// and ErrInvalidData for a record of unknown type.
func (t *Tx) Import(ctx context.Context, records []Record) (ImportStats, error) {
	var stats ImportStats
	for i, rec := range records {
		if rec.Type != RecordCategory && rec.Type != RecordItem {
			return stats, fmt.Errorf("record %d has type %q: %w", i, rec.Type, types.ErrInvalidData)
		}
	}
	for _, rec := range records {
		if rec.Type != RecordCategory {
			continue
		}
		in := types.CategoryInput{Name: rec.Name, Color: rec.Color}
		id, err := t.CategoryIDByName(ctx, rec.Name)
		if err != nil {
			return stats, err
		}
		if id == 0 {
			if _, err := t.CreateCategory(ctx, in); err != nil {
				return stats, err
			}
			stats.CategoriesCreated++
			continue
		}
		if _, err := t.UpdateCategory(ctx, id, in); err != nil {
			return stats, err
		}
		stats.CategoriesUpdated++
	}

	for _, rec := range records {
		if rec.Type != RecordItem {
			continue
		}
		catID, err := t.CategoryIDByName(ctx, rec.Category)
		if err != nil {
			return stats, err
		}
		if catID == 0 {
			return stats, fmt.Errorf("item %q names category %q: %w", rec.Name, rec.Category, types.ErrInvalidCategory)
		}
		in := types.ItemInput{
			Name:          rec.Name,
			CategoryID:    catID,
			Note:          rec.Note,
			SearchAliases: rec.SearchAliases,
		}
		id, err := t.ItemIDByName(ctx, rec.Name)
		if err != nil {
			return stats, err
		}
		if id == 0 {
			if _, err := t.CreateItem(ctx, in); err != nil {
				return stats, err
			}
			stats.ItemsCreated++
			continue
		}
		if _, err := t.UpdateItem(ctx, id, in); err != nil {
			return stats, err
		}
		stats.ItemsUpdated++
	}
	return stats, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
