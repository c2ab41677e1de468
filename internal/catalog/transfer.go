package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/store"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Reset deletes every item and category. It is refused in production.
func (s *Service) Reset(ctx context.Context) Result {
	if types.IsProduction(s.env) {
		s.logger.Warn("reset refused in production")
		return s.reject(OpReset, failure(CodeForbidden, "reset is disabled in production"))
	}
	return s.mutate(ctx, OpReset, func(tx *store.Tx) error {
		return tx.Reset(ctx)
	})
}

// Import validates records and upserts them by name as one mutation.
func (s *Service) Import(ctx context.Context, records []store.Record) Result {
	fields := make(map[string]string)
	for i, rec := range records {
		rec = normalizeRecord(rec)
		var problems map[string]string
		switch rec.Type {
		case store.RecordCategory:
			problems = s.fieldErrors(types.CategoryInput{Name: rec.Name, Color: rec.Color})
		case store.RecordItem:
			in := types.ItemInput{Name: rec.Name, Note: rec.Note, SearchAliases: rec.SearchAliases}
			problems = s.fieldErrors(in, "Name", "Note", "SearchAliases")
			if rec.Category == "" {
				if problems == nil {
					problems = make(map[string]string)
				}
				problems["category"] = "is required"
			}
		default:
			problems = map[string]string{"type": "must be category or item"}
		}
		for f, msg := range problems {
			fields[fmt.Sprintf("records[%d].%s", i, f)] = msg
		}
	}
	if len(fields) > 0 {
		return s.reject(OpImport, invalid(fields))
	}

	normalized := make([]store.Record, len(records))
	for i, rec := range records {
		normalized[i] = normalizeRecord(rec)
	}

	var stats store.ImportStats
	res := s.mutate(ctx, OpImport, func(tx *store.Tx) error {
		var err error
		stats, err = tx.Import(ctx, normalized)
		return err
	})
	if res.OK {
		res.Import = &stats
	}
	return res
}

func normalizeRecord(rec store.Record) store.Record {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Color = strings.TrimSpace(rec.Color)
	rec.Category = strings.TrimSpace(rec.Category)
	rec.Note = strings.TrimSpace(rec.Note)
	rec.SearchAliases = strings.TrimSpace(rec.SearchAliases)
	return rec
}

// Seed imports the starter catalog when the catalog has no categories.
// On a non-empty catalog it succeeds without a mutation.
func (s *Service) Seed(ctx context.Context) Result {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		s.logger.Error("reading catalog before seed failed", zap.Error(err))
		return failure(CodeInternal, "the catalog could not be read")
	}
	if len(cats.Rows) > 0 {
		return Result{OK: true, Version: cats.Version, Message: "catalog is not empty, seed skipped"}
	}
	return s.Import(ctx, store.SeedRecords())
}

// Export writes the catalog to a JSONL file.
func (s *Service) Export(ctx context.Context, path string) error {
	return s.store.Export(ctx, path)
}
