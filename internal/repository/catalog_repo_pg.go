package repository

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"supermercado/ordercore/internal/model"
)

const defaultProductsTable = "produtos-sp-queiroz"

type pgCatalogRepository struct {
	db     *gorm.DB
	table  string
	logger *zap.Logger
}

func NewPGCatalogRepository(db *gorm.DB, table string, logger *zap.Logger) CatalogRepository {
	if strings.TrimSpace(table) == "" {
		table = defaultProductsTable
	}
	return &pgCatalogRepository{db: db, table: table, logger: logger}
}

func (r *pgCatalogRepository) Extensions(ctx context.Context) (CatalogExtensions, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Raw("SELECT extname FROM pg_extension WHERE extname IN ('unaccent','pg_trgm')").
		Scan(&names).Error
	if err != nil {
		return CatalogExtensions{}, err
	}
	var exts CatalogExtensions
	for _, n := range names {
		switch n {
		case "unaccent":
			exts.Unaccent = true
		case "pg_trgm":
			exts.Trigram = true
		}
	}
	return exts, nil
}

// searchStrategy is one rung of the fallback ladder: a label for logging
// plus a closure that builds SQL and args for a given table.
type searchStrategy struct {
	name  string
	build func(table string, q SearchQuery) (string, []interface{})
}

func (r *pgCatalogRepository) Search(ctx context.Context, q SearchQuery) ([]model.ProductRow, error) {
	if q.Limit < 1 {
		q.Limit = 8
	}
	if q.Limit > 25 {
		q.Limit = 25
	}

	exts, err := r.Extensions(ctx)
	if err != nil {
		return nil, err
	}
	strategies := buildStrategies(exts)

	var lastErr error
	for _, table := range tableNameVariants(r.table) {
		ident, ok := quoteIdent(table)
		if !ok {
			continue
		}
		for _, st := range strategies {
			sqlText, args := st.build(ident, q)
			var rows []model.ProductRow
			if err := r.db.WithContext(ctx).Raw(sqlText, args...).Scan(&rows).Error; err != nil {
				lastErr = err
				r.logger.Debug("catalog strategy failed",
					zap.String("strategy", st.name),
					zap.String("table", table),
					zap.Error(err))
				continue
			}
			return rows, nil
		}
	}
	return nil, lastErr
}

// buildStrategies assembles the cascade in relevance order. Only the
// strategies whose extensions exist are included; the plain ILIKE rungs
// are always present.
func buildStrategies(exts CatalogExtensions) []searchStrategy {
	var out []searchStrategy

	if exts.Unaccent && exts.Trigram {
		out = append(out, searchStrategy{
			name: "hybrid_fts_trigram",
			build: func(table string, q SearchQuery) (string, []interface{}) {
				like := "%" + q.Term + "%"
				sqlText := fmt.Sprintf(`
WITH q AS (
    SELECT plainto_tsquery('simple', unaccent(?)) AS tsq
)
SELECT id, nome, coalesce(descricao, '') AS descricao, preco, estoque, unidade, categoria
FROM %s
CROSS JOIN q
WHERE (
    to_tsvector('simple', unaccent(coalesce(nome,'') || ' ' || coalesce(descricao,''))) @@ q.tsq
    OR unaccent(nome) ILIKE unaccent(?)
    OR unaccent(descricao) ILIKE unaccent(?)
    OR word_similarity(unaccent(?), unaccent(nome)) > 0.2
    OR word_similarity(unaccent(?), unaccent(descricao)) > 0.2
    OR similarity(unaccent(nome), unaccent(?)) > 0.2
    OR similarity(unaccent(descricao), unaccent(?)) > 0.2
)
ORDER BY (
    0.70 * ts_rank_cd(
        to_tsvector('simple', unaccent(coalesce(nome,'') || ' ' || coalesce(descricao,''))),
        q.tsq
    )
    + 0.30 * GREATEST(
        word_similarity(unaccent(?), unaccent(nome)),
        word_similarity(unaccent(?), unaccent(descricao)),
        similarity(unaccent(nome), unaccent(?)),
        similarity(unaccent(descricao), unaccent(?))
    )
) DESC
LIMIT ?`, table)
				return sqlText, []interface{}{
					q.Term, like, like,
					q.Term, q.Term, q.Term, q.Term,
					q.Term, q.Term, q.Term, q.Term,
					q.Limit,
				}
			},
		}, searchStrategy{
			name: "trigram_only",
			build: func(table string, q SearchQuery) (string, []interface{}) {
				sqlText := fmt.Sprintf(`
SELECT id, nome, coalesce(descricao, '') AS descricao, preco, estoque, unidade, categoria
FROM %s
WHERE (
    word_similarity(unaccent(?), unaccent(nome)) > 0.2
    OR word_similarity(unaccent(?), unaccent(descricao)) > 0.2
)
ORDER BY GREATEST(
    word_similarity(unaccent(?), unaccent(nome)),
    word_similarity(unaccent(?), unaccent(descricao))
) DESC
LIMIT ?`, table)
				return sqlText, []interface{}{q.Term, q.Term, q.Term, q.Term, q.Limit}
			},
		})
	}

	if exts.Unaccent {
		out = append(out, searchStrategy{
			name: "unaccent_ilike",
			build: func(table string, q SearchQuery) (string, []interface{}) {
				like := "%" + q.Term + "%"
				sqlText := fmt.Sprintf(`
SELECT id, nome, coalesce(descricao, '') AS descricao, preco, estoque, unidade, categoria
FROM %s
WHERE unaccent(nome) ILIKE unaccent(?)
   OR unaccent(descricao) ILIKE unaccent(?)
LIMIT ?`, table)
				return sqlText, []interface{}{like, like, q.Limit}
			},
		})
	}

	out = append(out, searchStrategy{
		name: "plain_ilike",
		build: func(table string, q SearchQuery) (string, []interface{}) {
			like := "%" + q.Term + "%"
			likeFolded := "%" + q.TermFolded + "%"
			sqlText := fmt.Sprintf(`
SELECT id, nome, coalesce(descricao, '') AS descricao, preco, estoque, unidade, categoria
FROM %s
WHERE nome ILIKE ?
   OR descricao ILIKE ?
   OR nome ILIKE ?
   OR descricao ILIKE ?
LIMIT ?`, table)
			return sqlText, []interface{}{like, like, likeFolded, likeFolded, q.Limit}
		},
	}, searchStrategy{
		// For catalogs without a descricao column.
		name: "name_only_ilike",
		build: func(table string, q SearchQuery) (string, []interface{}) {
			like := "%" + q.Term + "%"
			likeFolded := "%" + q.TermFolded + "%"
			sqlText := fmt.Sprintf(`
SELECT id, nome, preco, estoque, unidade, categoria
FROM %s
WHERE nome ILIKE ?
   OR nome ILIKE ?
LIMIT ?`, table)
			return sqlText, []interface{}{like, likeFolded, q.Limit}
		},
	})

	return out
}

// tableNameVariants tolerates singular/plural drift in the configured
// products table name ("produtos-..." vs "produto-...").
func tableNameVariants(name string) []string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = defaultProductsTable
	}
	variants := []string{base}
	if strings.Contains(base, "produtos-") {
		variants = append(variants, strings.Replace(base, "produtos-", "produto-", 1))
	}
	if strings.Contains(base, "produto-") {
		variants = append(variants, strings.Replace(base, "produto-", "produtos-", 1))
	}
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// quoteIdent double-quotes a table identifier, rejecting anything outside
// the safe character set so configuration can never inject SQL.
func quoteIdent(name string) (string, bool) {
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_', ch == '.':
		default:
			return "", false
		}
	}
	return `"` + name + `"`, true
}
