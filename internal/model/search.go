package model

// ProductRow is a raw catalog row as selected by a search strategy.
// Descricao is empty for strategies that run against tables without a
// description column.
type ProductRow struct {
	ID        int64   `gorm:"column:id"`
	Nome      string  `gorm:"column:nome"`
	Descricao string  `gorm:"column:descricao"`
	Preco     float64 `gorm:"column:preco"`
	Estoque   float64 `gorm:"column:estoque"`
	Unidade   string  `gorm:"column:unidade"`
	Categoria string  `gorm:"column:categoria"`
}

// SearchCandidate is one scored search result. Transient: produced per
// query, returned to the caller, never persisted.
type SearchCandidate struct {
	ID         int64   `json:"id"`
	Nome       string  `json:"nome"`
	Preco      float64 `json:"preco"`
	Estoque    float64 `json:"estoque"`
	Unidade    string  `json:"unidade"`
	Categoria  string  `json:"categoria"`
	MatchScore float64 `json:"match_score"`
	MatchOK    bool    `json:"match_ok"`
	Aviso      string  `json:"aviso,omitempty"`
}

// Suggestion is a product previously shown to a customer, kept so a later
// "quero esse" can be resolved without a second search.
type Suggestion struct {
	Nome       string  `json:"nome"`
	Preco      float64 `json:"preco"`
	TermoBusca string  `json:"termo_busca"`
	MatchOK    bool    `json:"match_ok"`
}
