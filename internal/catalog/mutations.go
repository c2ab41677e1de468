package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/store"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Mutation operation names, used in logs and metrics.
const (
	OpCreateCategory = "create_category"
	OpUpdateCategory = "update_category"
	OpDeleteCategory = "delete_category"
	OpCreateItem     = "create_item"
	OpUpdateItem     = "update_item"
	OpDeleteItem     = "delete_item"
	OpReset          = "reset"
	OpImport         = "import"
)

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, in types.CategoryInput) Result {
	in = normalizeCategory(in)
	if fields := s.fieldErrors(in); fields != nil {
		return s.reject(OpCreateCategory, invalid(fields))
	}
	var cat types.Category
	res := s.mutate(ctx, OpCreateCategory, func(tx *store.Tx) error {
		var err error
		cat, err = tx.CreateCategory(ctx, in)
		return err
	})
	if res.OK {
		res.Category = &cat
	}
	return res
}

// UpdateCategory replaces a category's name and color.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in types.CategoryInput) Result {
	in = normalizeCategory(in)
	if fields := s.fieldErrors(in); fields != nil {
		return s.reject(OpUpdateCategory, invalid(fields))
	}
	var cat types.Category
	res := s.mutate(ctx, OpUpdateCategory, func(tx *store.Tx) error {
		var err error
		cat, err = tx.UpdateCategory(ctx, id, in)
		return err
	})
	if res.OK {
		res.Category = &cat
	}
	return res
}

// DeleteCategory removes a category and all of its items in one mutation.
func (s *Service) DeleteCategory(ctx context.Context, id int64) Result {
	var removed int64
	res := s.mutate(ctx, OpDeleteCategory, func(tx *store.Tx) error {
		var err error
		removed, err = tx.DeleteCategory(ctx, id)
		return err
	})
	if res.OK {
		res.RemovedItems = removed
	}
	return res
}

// CreateItem adds an item.
func (s *Service) CreateItem(ctx context.Context, in types.ItemInput) Result {
	in = normalizeItem(in)
	if fields := s.fieldErrors(in); fields != nil {
		return s.reject(OpCreateItem, invalid(fields))
	}
	var item types.Item
	res := s.mutate(ctx, OpCreateItem, func(tx *store.Tx) error {
		var err error
		item, err = tx.CreateItem(ctx, in)
		return err
	})
	if res.OK {
		res.Item = &item
	}
	return res
}

// UpdateItem replaces an item's writable fields.
func (s *Service) UpdateItem(ctx context.Context, id int64, in types.ItemInput) Result {
	in = normalizeItem(in)
	if fields := s.fieldErrors(in); fields != nil {
		return s.reject(OpUpdateItem, invalid(fields))
	}
	var item types.Item
	res := s.mutate(ctx, OpUpdateItem, func(tx *store.Tx) error {
		var err error
		item, err = tx.UpdateItem(ctx, id, in)
		return err
	})
	if res.OK {
		res.Item = &item
	}
	return res
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id int64) Result {
	return s.mutate(ctx, OpDeleteItem, func(tx *store.Tx) error {
		return tx.DeleteItem(ctx, id)
	})
}

// mutate runs fn and the version bump in one transaction, then invalidates
// the result cache. The cache is invalidated only after the transaction
// commits and before success is reported.
func (s *Service) mutate(ctx context.Context, op string, fn func(*store.Tx) error) Result {
	version, err := s.store.Mutate(ctx, fn)
	if err != nil {
		return s.reject(op, s.classify(op, err))
	}
	s.cache.Invalidate(allTags...)
	s.observe(version)
	s.metrics.ObserveMutation(op, "ok")
	s.logger.Info("catalog mutated", zap.String("operation", op), zap.Int64("version", version))
	return Result{OK: true, Version: version}
}

func (s *Service) reject(op string, res Result) Result {
	s.metrics.ObserveMutation(op, string(res.Code))
	return res
}

// classify maps a store error to a Result. Unexpected errors are logged and
// reported with a generic message.
func (s *Service) classify(op string, err error) Result {
	switch {
	case errors.Is(err, types.ErrDuplicateName):
		return failure(CodeDuplicateName, duplicateMessage(op))
	case errors.Is(err, types.ErrNotFound):
		return failure(CodeNotFound, notFoundMessage(op))
	case errors.Is(err, types.ErrInvalidCategory):
		return invalid(map[string]string{"categoryId": "does not name an existing category"})
	case errors.Is(err, types.ErrInvalidData):
		return invalid(map[string]string{"records": "contain a record of unknown type"})
	case errors.Is(err, types.ErrInvalidID):
		return invalid(map[string]string{"id": "must be a positive integer"})
	default:
		s.logger.Error("catalog mutation failed", zap.String("operation", op), zap.Error(err))
		return failure(CodeInternal, "the catalog could not be updated, try again later")
	}
}

func duplicateMessage(op string) string {
	switch op {
	case OpCreateCategory, OpUpdateCategory:
		return "a category with this name already exists"
	case OpCreateItem, OpUpdateItem:
		return "an item with this name already exists"
	default:
		return "a name in the input already exists"
	}
}

func notFoundMessage(op string) string {
	switch op {
	case OpUpdateCategory, OpDeleteCategory:
		return "category not found"
	case OpUpdateItem, OpDeleteItem:
		return "item not found"
	default:
		return fmt.Sprintf("%s: not found", op)
	}
}
