// Package indicator turns a price series into aligned indicator sub-series.
//
// Every indicator family is a Kind carrying its own parameter struct. The
// Registry keeps the configured Spec of every family by name and dispatches
// batch requests through a closed switch over the parameter type.
package indicator

import (
	"fmt"
	"strings"

	"StockLens/internal/model"
)

// Kind enumerates the supported indicator families.
type Kind int

const (
	KindMA Kind = iota + 1
	KindMACD
	KindKDJ
	KindRSI
)

// String returns the canonical indicator name.
func (k Kind) String() string {
	switch k {
	case KindMA:
		return "MA"
	case KindMACD:
		return "MACD"
	case KindKDJ:
		return "KDJ"
	case KindRSI:
		return "RSI"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PlotType reports where the family is drawn.
func (k Kind) PlotType() model.PlotType {
	if k == KindMA {
		return model.PlotOverlay
	}
	return model.PlotOscillator
}

// ParseKind resolves a canonical name such as "MACD".
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "MA":
		return KindMA, true
	case "MACD":
		return KindMACD, true
	case "KDJ":
		return KindKDJ, true
	case "RSI":
		return KindRSI, true
	}
	return 0, false
}

// Params is implemented only by the parameter structs of this package.
type Params interface {
	kind() Kind
	validate() error
}

// MAParams configures simple moving averages, one sub-series per period.
type MAParams struct {
	Periods []int `json:"periods"`
}

// MACDParams configures the MACD line, signal line and histogram.
type MACDParams struct {
	Fast   int `json:"fast"`
	Slow   int `json:"slow"`
	Signal int `json:"signal"`
}

// KDJParams configures the stochastic K/D/J lines.
type KDJParams struct {
	Length  int `json:"length"`
	SmoothK int `json:"smooth_k"`
	SmoothD int `json:"smooth_d"`
}

// RSIParams configures the relative strength index.
type RSIParams struct {
	Length int `json:"length"`
}

func (MAParams) kind() Kind   { return KindMA }
func (MACDParams) kind() Kind { return KindMACD }
func (KDJParams) kind() Kind  { return KindKDJ }
func (RSIParams) kind() Kind  { return KindRSI }

func (p MAParams) validate() error {
	if len(p.Periods) == 0 {
		return fmt.Errorf("MA: at least one period required")
	}
	seen := make(map[int]bool, len(p.Periods))
	for _, n := range p.Periods {
		if n <= 0 {
			return fmt.Errorf("MA: period %d must be positive", n)
		}
		if seen[n] {
			return fmt.Errorf("MA: duplicate period %d", n)
		}
		seen[n] = true
	}
	return nil
}

func (p MACDParams) validate() error {
	if p.Fast <= 0 || p.Slow <= 0 || p.Signal <= 0 {
		return fmt.Errorf("MACD: periods must be positive")
	}
	if p.Fast >= p.Slow {
		return fmt.Errorf("MACD: fast (%d) must be shorter than slow (%d)", p.Fast, p.Slow)
	}
	return nil
}

func (p KDJParams) validate() error {
	if p.Length <= 0 || p.SmoothK <= 0 || p.SmoothD <= 0 {
		return fmt.Errorf("KDJ: lengths must be positive")
	}
	return nil
}

func (p RSIParams) validate() error {
	if p.Length <= 0 {
		return fmt.Errorf("RSI: length must be positive")
	}
	return nil
}

// Spec is the immutable configuration of one indicator family.
type Spec struct {
	Kind   Kind
	Params Params
}

// Name returns the registry key of the spec.
func (s Spec) Name() string { return s.Kind.String() }

// PlotType returns the drawing pane of the spec.
func (s Spec) PlotType() model.PlotType { return s.Kind.PlotType() }

// Validate checks that the params match the kind and are in range.
func (s Spec) Validate() error {
	if s.Params == nil {
		return fmt.Errorf("%s: missing params", s.Kind)
	}
	if s.Params.kind() != s.Kind {
		return fmt.Errorf("%s: params belong to %s", s.Kind, s.Params.kind())
	}
	return s.Params.validate()
}

// NewMA builds an MA spec. The periods slice is copied.
func NewMA(periods ...int) Spec {
	p := make([]int, len(periods))
	copy(p, periods)
	return Spec{Kind: KindMA, Params: MAParams{Periods: p}}
}

// NewMACD builds a MACD spec.
func NewMACD(fast, slow, signal int) Spec {
	return Spec{Kind: KindMACD, Params: MACDParams{Fast: fast, Slow: slow, Signal: signal}}
}

// NewKDJ builds a KDJ spec.
func NewKDJ(length, smoothK, smoothD int) Spec {
	return Spec{Kind: KindKDJ, Params: KDJParams{Length: length, SmoothK: smoothK, SmoothD: smoothD}}
}

// NewRSI builds an RSI spec.
func NewRSI(length int) Spec {
	return Spec{Kind: KindRSI, Params: RSIParams{Length: length}}
}

// DefaultSpecs returns the stock configuration of every family.
func DefaultSpecs() []Spec {
	return []Spec{
		NewMA(5, 10, 20, 30, 60),
		NewMACD(12, 26, 9),
		NewKDJ(9, 3, 3),
		NewRSI(14),
	}
}

// MALabel is the sub-series label of an MA period, e.g. "MA_5".
func MALabel(period int) string {
	return strings.ToUpper(fmt.Sprintf("ma_%d", period))
}

// Sub-series labels.
const (
	LabelMACD   = "MACD"
	LabelSignal = "SIGNAL"
	LabelHist   = "HIST"
	LabelK      = "K"
	LabelD      = "D"
	LabelJ      = "J"
	LabelRSI    = "RSI"
)
