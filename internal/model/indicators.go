package model

import "math"

// PlotType tells the presentation layer where an indicator is drawn.
type PlotType string

const (
	PlotOverlay    PlotType = "overlay"    // on the price chart
	PlotOscillator PlotType = "oscillator" // separate pane
)

// Point is one value of a sub-series. Value is nil during warm-up.
type Point struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// IndicatorOutput holds every sub-series produced by one indicator computation.
type IndicatorOutput struct {
	Name     string             `json:"name"`
	PlotType PlotType           `json:"type"`
	Series   map[string][]Point `json:"series"`
	Labels   []string           `json:"-"` // insertion order of Series keys
}

// NewIndicatorOutput creates an empty output.
func NewIndicatorOutput(name string, plot PlotType) *IndicatorOutput {
	return &IndicatorOutput{
		Name:     name,
		PlotType: plot,
		Series:   make(map[string][]Point),
	}
}

// Add attaches a sub-series. values must be aligned with timestamps; NaN marks undefined points.
func (o *IndicatorOutput) Add(label string, timestamps []string, values []float64) {
	points := make([]Point, len(timestamps))
	for i, ts := range timestamps {
		points[i].Time = ts
		if i < len(values) && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			v := values[i]
			points[i].Value = &v
		}
	}
	if _, ok := o.Series[label]; !ok {
		o.Labels = append(o.Labels, label)
	}
	o.Series[label] = points
}

// Values returns the sub-series as floats with NaN for undefined points, or nil if absent.
func (o *IndicatorOutput) Values(label string) []float64 {
	points, ok := o.Series[label]
	if !ok {
		return nil
	}
	out := make([]float64, len(points))
	for i, p := range points {
		if p.Value == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p.Value
		}
	}
	return out
}

// Latest returns the last point's value, if any.
func (o *IndicatorOutput) Latest(label string) (float64, bool) {
	points := o.Series[label]
	if len(points) == 0 || points[len(points)-1].Value == nil {
		return 0, false
	}
	return *points[len(points)-1].Value, true
}
