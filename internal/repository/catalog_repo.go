package repository

import (
	"context"

	"supermercado/ordercore/internal/model"
)

// CatalogExtensions reports which optional search extensions the catalog
// database has installed.
type CatalogExtensions struct {
	Unaccent bool
	Trigram  bool
}

// SearchQuery carries the already-normalized query text for the catalog
// search cascade.
type SearchQuery struct {
	Term       string // normalized, unit-canonical query
	TermFolded string // Term with accents stripped
	Limit      int
}

// CatalogRepository runs read-only product lookups against the relational
// catalog. Search tries an ordered cascade of strategies and returns the
// result set of the first one that executes without error.
type CatalogRepository interface {
	Extensions(ctx context.Context) (CatalogExtensions, error)
	Search(ctx context.Context, q SearchQuery) ([]model.ProductRow, error)
}
