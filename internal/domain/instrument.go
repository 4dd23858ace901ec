package domain

// InstrumentSnapshot is one tradable pair as reported by a single feed frame.
// Identity is ID when HasID is set, otherwise Symbol.
type InstrumentSnapshot struct {
	ID           int64   `json:"id"`
	HasID        bool    `json:"-"`
	Symbol       string  `json:"symbol"` // normalized, e.g. "BTC/USDT"
	DisplayName  string  `json:"display_name"`
	Price        float64 `json:"price"`
	ChangePct24h float64 `json:"change_pct_24h"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	ObservedAt   string  `json:"observed_at,omitempty"`
}

// SeriesPoint is one raw historical tick: unix seconds and a price value.
type SeriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// PlotPoint is a viewport-mapped point. Produced in batch, never mutated.
type PlotPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
