package model

// SignalKind classifies a detected event.
type SignalKind string

const (
	SignalGoldenCross SignalKind = "GOLDEN_CROSS"
	SignalDeathCross  SignalKind = "DEATH_CROSS"
	SignalOverbought  SignalKind = "OVERBOUGHT"
	SignalOversold    SignalKind = "OVERSOLD"
)

// SignalEvent is one human-readable trading signal, e.g. "MA10/MA30 金叉".
type SignalEvent struct {
	Kind   SignalKind `json:"kind"`
	Source string     `json:"source"` // "MA10/MA30", "MACD", "RSI"
	Text   string     `json:"text"`
}

func (e SignalEvent) String() string { return e.Text }

// SignalTexts flattens events to their display strings, keeping order.
func SignalTexts(events []SignalEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Text
	}
	return out
}
