package model

import "encoding/json"

// CartItem is one line of a customer's cart. Quantity and unit count are
// kept loose (json.Number-tolerant) because upstream payloads sometimes
// carry them as strings; use the Float/Int accessors when doing math.
type CartItem struct {
	Produto    string      `json:"produto"`
	Quantidade interface{} `json:"quantidade"`
	Unidades   interface{} `json:"unidades,omitempty"`
	Preco      float64     `json:"preco"`
	Observacao string      `json:"observacao,omitempty"`
}

// QuantidadeFloat coerces the stored quantity to a float, defaulting to
// zero on anything unparseable.
func (i CartItem) QuantidadeFloat() float64 {
	return coerceFloat(i.Quantidade)
}

// UnidadesInt coerces the stored unit count to an int, defaulting to zero.
func (i CartItem) UnidadesInt() int {
	return int(coerceFloat(i.Unidades))
}

func coerceFloat(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		var f float64
		if err := json.Unmarshal([]byte(n), &f); err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
