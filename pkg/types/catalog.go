package types

import "time"

// Category is a waste-sorting category.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is a household object assigned to exactly one category. Note and
// SearchAliases are optional; SearchAliases holds free-form alternative
// spellings (reading in kana, English name, brand names) used by search.
type Item struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	CategoryID    int64     `json:"categoryId"`
	Note          string    `json:"note,omitempty"`
	SearchAliases string    `json:"searchAliases,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ItemView is an item with its category name and color in place of the
// category reference. It is the read model served by GET /items.
type ItemView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	GarbageCategory string    `json:"garbageCategory"`
	CategoryColor   string    `json:"categoryColor"`
	Note            string    `json:"note,omitempty"`
	SearchAliases   string    `json:"searchAliases,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"required,hexcolor"`
}

// ItemInput carries the writable fields of an item.
type ItemInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	CategoryID    int64  `json:"categoryId" validate:"required,gt=0"`
	Note          string `json:"note" validate:"max=500"`
	SearchAliases string `json:"searchAliases" validate:"max=500"`
}

// Snapshot is a list of rows read together with the catalog version that was
// current when the rows were read. Version and Rows always come from the same
// read.
type Snapshot[T any] struct {
	Version int64 `json:"version"`
	Rows    []T   `json:"rows"`
}
