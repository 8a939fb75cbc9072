package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
)

const (
	matchOKThreshold = 0.55
	defaultLimit     = 8
	maxLimit         = 25

	// batchFanOut bounds concurrent term resolutions in ResolveBatch.
	batchFanOut = 10
)

// perpetualStockKeywords mark departments whose goods are weighed or cut
// to order; recorded stock there is unreliable and never blocks a sale.
var perpetualStockKeywords = []string{
	"frigori", "acougue", "açougue", "bovinos", "horti",
	"legume", "verdura", "fruta", "aves", "frios", "embutidos",
}

// priorityBoosts move items whose name carries the marker word to the
// front when the query mentions the trigger term. Order matters: only the
// first triggered entry applies.
var priorityBoosts = []struct {
	term  string
	boost string
}{
	{"frango", "abatido"},
	{"calabresa", "kg"},
	{"moida", "primeira"},
	{"moido", "primeira"},
}

// hortiCategoryKeywords identify fresh-produce categories for the
// sold-by-weight boost.
var hortiCategoryKeywords = []string{"horti", "fruta", "legume", "verdura", "flv"}

const noStockWarning = "SEM ESTOQUE - NÃO VENDER"

// SearchService resolves a free-text term into ranked catalog candidates.
// Resolve never fails: any database error degrades to an empty result.
type SearchService interface {
	Resolve(ctx context.Context, query string, limit int, customer string) []model.SearchCandidate
	ResolveBatch(ctx context.Context, terms []string, limit int, customer string) [][]model.SearchCandidate
}

type searchService struct {
	catalog      repository.CatalogRepository
	suggestions  SuggestionService
	logger       *zap.Logger
	translations map[string]string
}

func NewSearchService(
	catalog repository.CatalogRepository,
	suggestions SuggestionService,
	logger *zap.Logger,
	translations map[string]string,
) SearchService {
	return &searchService{
		catalog:      catalog,
		suggestions:  suggestions,
		logger:       logger,
		translations: translations,
	}
}

func (s *searchService) Resolve(ctx context.Context, query string, limit int, customer string) []model.SearchCandidate {
	q := collapseWhitespace(query)
	q = applyTermTranslations(q, s.translations)
	q = collapseWhitespace(normalizeUnitsInText(q))
	desiredUnit := extractUnitToken(q)

	if utf8.RuneCountInString(q) < 2 {
		return []model.SearchCandidate{}
	}

	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.catalog.Search(ctx, repository.SearchQuery{
		Term:       q,
		TermFolded: stripAccents(q),
		Limit:      limit,
	})
	if err != nil {
		s.logger.Error("catalog search exhausted all strategies",
			zap.String("query", q), zap.Error(err))
		return []model.SearchCandidate{}
	}

	rows = filterByUnit(rows, desiredUnit)
	scored := scoreRows(q, rows)
	scored = applyBoosts(q, scored)
	candidates := annotateStock(scored)

	if customer != "" && len(rows) > 0 {
		suggestions := make([]model.Suggestion, 0, len(candidates))
		for _, c := range candidates {
			suggestions = append(suggestions, model.Suggestion{
				Nome:       c.Nome,
				Preco:      c.Preco,
				TermoBusca: q,
				MatchOK:    c.MatchOK,
			})
		}
		// Best effort: a failed save must not fail the search.
		if !s.suggestions.Save(ctx, customer, suggestions) {
			s.logger.Warn("suggestion save failed after search",
				zap.String("customer", repository.NormalizeCustomer(customer)))
		}
	}
	return candidates
}

// ResolveBatch resolves terms concurrently with a bounded fan-out,
// preserving input order in the result. Suggestions are persisted per
// term exactly as in Resolve.
func (s *searchService) ResolveBatch(ctx context.Context, terms []string, limit int, customer string) [][]model.SearchCandidate {
	results := make([][]model.SearchCandidate, len(terms))
	sem := make(chan struct{}, batchFanOut)
	var wg sync.WaitGroup
	for i, term := range terms {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.Resolve(ctx, term, limit, customer)
		}(i, term)
	}
	wg.Wait()
	return results
}

// filterByUnit keeps rows whose name or description carries the desired
// quantity+unit pair. When that would drop everything, the filter is
// discarded instead of returning nothing.
func filterByUnit(rows []model.ProductRow, desiredUnit string) []model.ProductRow {
	if desiredUnit == "" || len(rows) == 0 {
		return rows
	}
	filtered := make([]model.ProductRow, 0, len(rows))
	for _, r := range rows {
		if textHasUnit(r.Nome, desiredUnit) || textHasUnit(r.Descricao, desiredUnit) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return rows
	}
	return filtered
}

type scoredRow struct {
	row     model.ProductRow
	score   float64
	matchOK bool
}

func scoreRows(q string, rows []model.ProductRow) []scoredRow {
	scored := make([]scoredRow, len(rows))
	for i, r := range rows {
		score := scoreMatch(q, r.Nome, r.Categoria)
		scored[i] = scoredRow{row: r, score: score, matchOK: score >= matchOKThreshold}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

// applyBoosts runs the domain re-ranking passes. Each pass is a stable
// partition: matching rows move to the front, relative order inside each
// half is preserved.
func applyBoosts(q string, scored []scoredRow) []scoredRow {
	qLower := strings.ToLower(q)
	for _, pb := range priorityBoosts {
		if !strings.Contains(qLower, pb.term) {
			continue
		}
		scored = partitionFront(scored, func(r scoredRow) bool {
			return strings.Contains(strings.ToLower(r.row.Nome), pb.boost)
		})
		break
	}

	hasHorti := false
	for _, r := range scored {
		cat := strings.ToLower(r.row.Categoria)
		for _, k := range hortiCategoryKeywords {
			if strings.Contains(cat, k) {
				hasHorti = true
				break
			}
		}
		if hasHorti {
			break
		}
	}
	if hasHorti {
		scored = partitionFront(scored, func(r scoredRow) bool {
			return strings.HasSuffix(strings.TrimSpace(strings.ToUpper(r.row.Nome)), "KG")
		})
	}
	return scored
}

func partitionFront(scored []scoredRow, match func(scoredRow) bool) []scoredRow {
	front := make([]scoredRow, 0, len(scored))
	rest := make([]scoredRow, 0, len(scored))
	for _, r := range scored {
		if match(r) {
			front = append(front, r)
		} else {
			rest = append(rest, r)
		}
	}
	if len(front) == 0 {
		return scored
	}
	return append(front, rest...)
}

// annotateStock converts scored rows into candidates, treating the
// perpetual departments as always in stock and flagging everything else
// that has none. Out-of-stock items are still returned; filtering them is
// the caller's call.
func annotateStock(scored []scoredRow) []model.SearchCandidate {
	out := make([]model.SearchCandidate, 0, len(scored))
	for _, sr := range scored {
		r := sr.row
		estoque := r.Estoque
		catLower := strings.ToLower(r.Categoria)
		perpetual := false
		for _, k := range perpetualStockKeywords {
			if strings.Contains(catLower, k) {
				perpetual = true
				break
			}
		}
		if perpetual && estoque <= 0 {
			estoque = 100
		}

		nome := r.Nome
		if nome == "" {
			nome = "Produto sem nome"
		}
		unidade := r.Unidade
		if unidade == "" {
			unidade = "UN"
		}
		c := model.SearchCandidate{
			ID:         r.ID,
			Nome:       nome,
			Preco:      r.Preco,
			Estoque:    estoque,
			Unidade:    unidade,
			Categoria:  r.Categoria,
			MatchScore: sr.score,
			MatchOK:    sr.matchOK,
		}
		if estoque <= 0 && !perpetual {
			c.Aviso = noStockWarning
		}
		out = append(out, c)
	}
	return out
}
