package model

import "time"

// NotifiedSignals remembers which signal texts were pushed for one bar.
type NotifiedSignals struct {
	BarDate string   `json:"bar_date"`
	Signals []string `json:"signals"`
}

// WatchlistState is the persisted watchlist: scanned symbols plus the last
// notified signals per "<code>|<period>".
type WatchlistState struct {
	Symbols   []string                   `json:"symbols"`
	Notified  map[string]NotifiedSignals `json:"notified"`
	UpdatedAt time.Time                  `json:"updated_at"`
}
