// Package types defines the catalog entities, backend configuration, and
// standard errors shared by the bunbetsu store, coordinator, HTTP surface,
// and client.
//
// Categories are waste-sorting categories (for example 可燃ごみ) with a display
// color. Items are household objects assigned to exactly one category. An
// ItemView is the read model served to clients: an item flattened with its
// category's name and color.
package types
