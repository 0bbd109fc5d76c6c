package indicator

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"StockLens/internal/model"
)

func makeSeries(closes []float64) model.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return model.NewPriceSeries("000001", model.PeriodDaily, bars)
}

func wavySeries(n int) model.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 8*math.Sin(float64(i)/5) + 3*math.Cos(float64(i)/2)
	}
	return makeSeries(closes)
}

func newTestRegistry(t *testing.T, backend Backend, opts ...Option) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(backend, zerolog.Nop(), nil, opts...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return r
}

type recordingObserver struct {
	outcomes map[string][]string
}

func (o *recordingObserver) ObserveCompute(name, outcome string, _ time.Duration) {
	if o.outcomes == nil {
		o.outcomes = make(map[string][]string)
	}
	o.outcomes[name] = append(o.outcomes[name], outcome)
}

type noMACDBackend struct{ NativeBackend }

func (noMACDBackend) MACD([]float64, int, int, int) ([]float64, []float64, []float64, error) {
	return nil, nil, nil, ErrUnavailable
}

func TestCalculate_SkipsUnknownAndKeepsOrder(t *testing.T) {
	r := newTestRegistry(t, nil)
	results, err := r.Calculate([]string{"RSI", "UNKNOWN", "MA"}, wavySeries(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "RSI" || results[1].Name != "MA" {
		t.Errorf("expected [RSI MA], got [%s %s]", results[0].Name, results[1].Name)
	}
}

func TestCalculate_DuplicatesRepeat(t *testing.T) {
	r := newTestRegistry(t, nil)
	results, err := r.Calculate([]string{"RSI", "RSI"}, wavySeries(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestCalculate_EmptySeries(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Calculate([]string{"MA"}, model.NewPriceSeries("x", model.PeriodDaily, nil))
	if !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestCalculate_MisalignedSeries(t *testing.T) {
	r := newTestRegistry(t, nil)
	s := wavySeries(10)
	s.Timestamps = s.Timestamps[:5]
	if _, err := r.Calculate([]string{"MA"}, s); !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestCalculate_PartialFailure(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRegistry(t, noMACDBackend{}, WithObserver(obs))
	results, err := r.Calculate([]string{"MACD", "RSI", "NOPE"}, wavySeries(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "RSI" {
		t.Fatalf("expected only RSI, got %+v", results)
	}
	if got := obs.outcomes["MACD"]; len(got) != 1 || got[0] != OutcomeUnavailable {
		t.Errorf("MACD outcome: %v", got)
	}
	if got := obs.outcomes["RSI"]; len(got) != 1 || got[0] != OutcomeOK {
		t.Errorf("RSI outcome: %v", got)
	}
	if got := obs.outcomes["NOPE"]; len(got) != 1 || got[0] != OutcomeUnknown {
		t.Errorf("NOPE outcome: %v", got)
	}
}

func TestCalculate_DoesNotMutateInput(t *testing.T) {
	r := newTestRegistry(t, nil)
	s := wavySeries(70)
	before := s.Clone()
	if _, err := r.Calculate([]string{"MA", "MACD", "KDJ", "RSI"}, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range before.Bars {
		if s.Bars[i] != before.Bars[i] || s.Timestamps[i] != before.Timestamps[i] {
			t.Fatalf("bar %d mutated", i)
		}
	}
}

func TestCalculate_AllSubSeriesAligned(t *testing.T) {
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		r := newTestRegistry(t, backend)
		for _, n := range []int{1, 5, 20, 34, 90} {
			s := wavySeries(n)
			results, err := r.Calculate([]string{"MA", "MACD", "KDJ", "RSI"}, s)
			if err != nil {
				t.Fatalf("%s n=%d: %v", backend.Name(), n, err)
			}
			if len(results) != 4 {
				t.Fatalf("%s n=%d: expected 4 results, got %d", backend.Name(), n, len(results))
			}
			for _, out := range results {
				for _, label := range out.Labels {
					points := out.Series[label]
					if len(points) != n {
						t.Errorf("%s n=%d %s/%s: %d points", backend.Name(), n, out.Name, label, len(points))
					}
					for i, p := range points {
						if p.Time != s.Timestamps[i] {
							t.Fatalf("%s/%s point %d: time %s, want %s", out.Name, label, i, p.Time, s.Timestamps[i])
						}
					}
				}
			}
		}
	}
}

func TestMA_MatchesArithmeticMean(t *testing.T) {
	r := newTestRegistry(t, nil)
	s := wavySeries(50)
	closes := s.Closes()
	results, _ := r.Calculate([]string{"MA"}, s)
	ma := results[0]
	if ma.PlotType != model.PlotOverlay {
		t.Errorf("MA should be overlay, got %s", ma.PlotType)
	}
	wantLabels := []string{"MA_5", "MA_10", "MA_20", "MA_30", "MA_60"}
	if strings.Join(ma.Labels, ",") != strings.Join(wantLabels, ",") {
		t.Fatalf("labels %v, want %v", ma.Labels, wantLabels)
	}
	for _, p := range []int{5, 10, 20, 30, 60} {
		points := ma.Series[MALabel(p)]
		for i, pt := range points {
			if i < p-1 {
				if pt.Value != nil {
					t.Fatalf("MA_%d[%d] should be null", p, i)
				}
				continue
			}
			sum := 0.0
			for j := i - p + 1; j <= i; j++ {
				sum += closes[j]
			}
			if pt.Value == nil || math.Abs(*pt.Value-sum/float64(p)) > 1e-9 {
				t.Fatalf("MA_%d[%d] = %v, want %.6f", p, i, pt.Value, sum/float64(p))
			}
		}
	}
}

func TestMACD_HistogramIdentity(t *testing.T) {
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		r := newTestRegistry(t, backend)
		results, _ := r.Calculate([]string{"MACD"}, wavySeries(120))
		if len(results) != 1 {
			t.Fatalf("%s: MACD missing", backend.Name())
		}
		macd := results[0]
		m, s, h := macd.Values(LabelMACD), macd.Values(LabelSignal), macd.Values(LabelHist)
		defined := 0
		for i := range h {
			if math.IsNaN(h[i]) {
				continue
			}
			defined++
			if math.Abs(h[i]-(m[i]-s[i])) > 1e-9 {
				t.Errorf("%s idx %d: hist %.9f != %.9f", backend.Name(), i, h[i], m[i]-s[i])
			}
		}
		if defined == 0 {
			t.Errorf("%s: no defined histogram points", backend.Name())
		}
	}
}

func TestKDJ_JIdentity(t *testing.T) {
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		r := newTestRegistry(t, backend)
		results, _ := r.Calculate([]string{"KDJ"}, wavySeries(60))
		if len(results) != 1 {
			t.Fatalf("%s: KDJ missing", backend.Name())
		}
		k, d, j := results[0].Values(LabelK), results[0].Values(LabelD), results[0].Values(LabelJ)
		for i := range j {
			if math.IsNaN(j[i]) {
				continue
			}
			if math.Abs(j[i]-(3*k[i]-2*d[i])) > 1e-9 {
				t.Errorf("%s idx %d: J %.9f != 3K-2D %.9f", backend.Name(), i, j[i], 3*k[i]-2*d[i])
			}
		}
	}
}

func TestKDJ_UnavailableWithoutHighLow(t *testing.T) {
	r := newTestRegistry(t, nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, 20)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: float64(10 + i)}
	}
	results, err := r.Calculate([]string{"KDJ", "MA"}, model.NewPriceSeries("x", model.PeriodDaily, bars))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "MA" {
		t.Fatalf("expected only MA, got %d results", len(results))
	}
}

func TestRSI_Bounded(t *testing.T) {
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		r := newTestRegistry(t, backend)
		results, _ := r.Calculate([]string{"RSI"}, wavySeries(200))
		for i, v := range results[0].Values(LabelRSI) {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Errorf("%s idx %d: RSI %.3f out of [0,100]", backend.Name(), i, v)
			}
		}
	}
}

func TestConstantCloseScenario(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		r := newTestRegistry(t, backend)
		results, err := r.Calculate([]string{"MA", "RSI"}, makeSeries(closes))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", backend.Name(), err)
		}
		ma := results[0]
		for _, label := range ma.Labels {
			for _, p := range ma.Series[label] {
				if p.Value != nil && math.Abs(*p.Value-100) > 1e-9 {
					t.Fatalf("%s %s: expected 100, got %v", backend.Name(), label, *p.Value)
				}
			}
		}
		if v, ok := ma.Latest("MA_60"); !ok || math.Abs(v-100) > 1e-9 {
			t.Errorf("%s MA_60 latest: %v %v", backend.Name(), v, ok)
		}
		// zero-volatility convention: RSI is exactly 50 once warmed up
		rsi := results[1]
		for i, p := range rsi.Series[LabelRSI] {
			if i < 14 {
				if p.Value != nil {
					t.Fatalf("%s RSI[%d] should be null", backend.Name(), i)
				}
				continue
			}
			if p.Value == nil || *p.Value != 50.0 {
				t.Fatalf("%s RSI[%d]: expected 50, got %v", backend.Name(), i, p.Value)
			}
		}
	}
}

func TestFlatRange_KDJPinnedTo50(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, 30)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: 10, High: 10, Low: 10, Close: 10}
	}
	series := model.NewPriceSeries("600000", model.PeriodDaily, bars)
	for _, backend := range []Backend{NativeBackend{}, TalibBackend{}} {
		results, _ := newTestRegistry(t, backend).Calculate([]string{"KDJ"}, series)
		if len(results) != 1 {
			t.Fatalf("%s: KDJ missing", backend.Name())
		}
		for _, label := range []string{LabelK, LabelD, LabelJ} {
			v, ok := results[0].Latest(label)
			if !ok || math.Abs(v-50) > 1e-9 {
				t.Errorf("%s %s: expected 50, got %v %v", backend.Name(), label, v, ok)
			}
		}
	}
}

func TestTalibMatchesNative(t *testing.T) {
	series := wavySeries(80)
	native, _ := newTestRegistry(t, NativeBackend{}).Calculate([]string{"KDJ", "RSI"}, series)
	ta, _ := newTestRegistry(t, TalibBackend{}).Calculate([]string{"KDJ", "RSI"}, series)
	if len(native) != 2 || len(ta) != 2 {
		t.Fatalf("expected KDJ and RSI from both backends, got %d/%d", len(native), len(ta))
	}
	for n, labels := range [][]string{{LabelK, LabelD, LabelJ}, {LabelRSI}} {
		for _, label := range labels {
			a, b := native[n].Values(label), ta[n].Values(label)
			for i := range a {
				if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
					t.Fatalf("%s[%d]: warm-up differs (%v vs %v)", label, i, a[i], b[i])
				}
				if !math.IsNaN(a[i]) && math.Abs(a[i]-b[i]) > 1e-6 {
					t.Errorf("%s[%d]: native %.9f talib %.9f", label, i, a[i], b[i])
				}
			}
		}
	}
}

func TestTalibRSI_PeriodOne(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	got, err := TalibBackend{}.RSI(closes, 1)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if !math.IsNaN(got[0]) {
		t.Errorf("RSI[0] should be undefined, got %v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] != 100 {
			t.Errorf("RSI[%d]: expected 100, got %v", i, got[i])
		}
	}
}

func TestRisingSeriesScenario(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(10 + i)
	}
	r := newTestRegistry(t, nil)
	results, err := r.Calculate([]string{"MA", "MACD"}, makeSeries(closes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ma5 := results[0].Series["MA_5"][39].Value
	want := (closes[35] + closes[36] + closes[37] + closes[38] + closes[39]) / 5
	if ma5 == nil || math.Abs(*ma5-want) > 1e-9 {
		t.Fatalf("MA_5[39] = %v, want %.3f", ma5, want)
	}
	for i, p := range results[1].Series[LabelMACD] {
		if i < 25 {
			if p.Value != nil {
				t.Fatalf("MACD[%d] should be null", i)
			}
			continue
		}
		if p.Value == nil || *p.Value <= 0 {
			t.Fatalf("MACD[%d] should be positive, got %v", i, p.Value)
		}
	}
}

func TestShortSeriesIsAllNull(t *testing.T) {
	r := newTestRegistry(t, nil)
	results, err := r.Calculate([]string{"MACD", "RSI"}, wavySeries(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, out := range results {
		for _, label := range out.Labels {
			for _, p := range out.Series[label] {
				if p.Value != nil {
					t.Fatalf("%s/%s: expected null, got %v", out.Name, label, *p.Value)
				}
			}
		}
	}
}

func TestRegister_LastWins(t *testing.T) {
	r := newTestRegistry(t, nil)
	if err := r.Register(NewRSI(6)); err != nil {
		t.Fatalf("register: %v", err)
	}
	spec, ok := r.Lookup("RSI")
	if !ok {
		t.Fatal("RSI missing")
	}
	if p := spec.Params.(RSIParams); p.Length != 6 {
		t.Errorf("expected length 6, got %d", p.Length)
	}
	if len(r.ListConfigs()) != 4 {
		t.Errorf("expected 4 configs, got %d", len(r.ListConfigs()))
	}
}

func TestRegister_RejectsInvalidSpecs(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	bad := []Spec{
		NewMA(),
		NewMA(5, 0),
		NewMA(5, 5),
		NewMACD(26, 12, 9),
		NewKDJ(9, 0, 3),
		NewRSI(0),
		{Kind: KindRSI, Params: MAParams{Periods: []int{5}}},
		{Kind: KindMA},
	}
	for i, spec := range bad {
		if err := r.Register(spec); err == nil {
			t.Errorf("spec %d: expected validation error", i)
		}
	}
}

func TestListConfigs_JSON(t *testing.T) {
	r := newTestRegistry(t, nil)
	configs := r.ListConfigs()
	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = c.Name
	}
	if strings.Join(names, ",") != "KDJ,MA,MACD,RSI" {
		t.Fatalf("unexpected order: %v", names)
	}
	data, err := json.Marshal(configs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{
		`{"name":"MA","params":{"periods":[5,10,20,30,60]},"type":"overlay"}`,
		`{"name":"MACD","params":{"fast":12,"slow":26,"signal":9},"type":"oscillator"}`,
		`{"name":"KDJ","params":{"length":9,"smooth_k":3,"smooth_d":3},"type":"oscillator"}`,
		`{"name":"RSI","params":{"length":14},"type":"oscillator"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %s in %s", want, data)
		}
	}
}

func TestEvaluate_AdHocSpec(t *testing.T) {
	r := newTestRegistry(t, nil)
	out, ok := r.Evaluate(NewMA(10, 30), wavySeries(40))
	if !ok {
		t.Fatal("expected output")
	}
	if len(out.Labels) != 2 || out.Labels[0] != "MA_10" || out.Labels[1] != "MA_30" {
		t.Errorf("labels: %v", out.Labels)
	}
	if _, ok := r.Lookup("MA"); !ok {
		t.Fatal("registered MA should be untouched")
	}
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"", "native", "talib"} {
		if _, err := NewBackend(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}
	if _, err := NewBackend("pandas"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
