package models

import "strings"

// Symbol is one tradable ticker or currency pair offered by the catalog.
type Symbol struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Matches reports whether term is a case-insensitive substring of the value or label.
// An empty term matches everything.
func (s Symbol) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Value), term) ||
		strings.Contains(strings.ToLower(s.Label), term)
}

type TickerKind string

const (
	KindStock     TickerKind = "stock"
	KindCurrency  TickerKind = "currency"
	KindCommodity TickerKind = "commodity"
)

var commodityTickers = map[string]struct{}{
	"GC=F": {},
	"BZ=F": {},
}

// ClassifyTicker guesses the instrument kind from the ticker notation.
// Yahoo-style "=X" suffixes and XXX_YYY pairs are currencies.
func ClassifyTicker(ticker string) TickerKind {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if _, ok := commodityTickers[t]; ok {
		return KindCommodity
	}
	if strings.HasSuffix(t, "=X") {
		return KindCurrency
	}
	if base, quote, ok := strings.Cut(t, "_"); ok && len(base) == 3 && len(quote) == 3 {
		return KindCurrency
	}
	return KindStock
}

// Label is the display name shown next to the ticker.
func (k TickerKind) Label() string {
	switch k {
	case KindCurrency:
		return "Валюта"
	case KindCommodity:
		return "Товар"
	default:
		return "Акция"
	}
}
