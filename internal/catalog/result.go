package catalog

import (
	"github.com/mesh-intelligence/bunbetsu/internal/store"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Code classifies a failed mutation.
type Code string

// Result codes.
const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeDuplicateName Code = "DUPLICATE_NAME"
	CodeNotFound      Code = "NOT_FOUND"
	CodeForbidden     Code = "FORBIDDEN"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Result reports the outcome of a mutation. On success Version is the
// catalog version the mutation produced. On failure Code and Message are
// set; Fields maps input field names to problems for validation failures.
type Result struct {
	OK           bool               `json:"ok"`
	Version      int64              `json:"version,omitempty"`
	Code         Code               `json:"code,omitempty"`
	Message      string             `json:"message,omitempty"`
	Fields       map[string]string  `json:"fields,omitempty"`
	Category     *types.Category    `json:"category,omitempty"`
	Item         *types.Item        `json:"item,omitempty"`
	RemovedItems int64              `json:"removedItems,omitempty"`
	Import       *store.ImportStats `json:"import,omitempty"`
}

func failure(code Code, message string) Result {
	return Result{Code: code, Message: message}
}

func invalid(fields map[string]string) Result {
	return Result{Code: CodeValidation, Message: "input is invalid", Fields: fields}
}
