package indicator

import (
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"StockLens/internal/model"
)

var (
	// ErrEmptySeries is returned when Calculate receives a series without bars.
	ErrEmptySeries = errors.New("price series is empty")
	// ErrMisaligned is returned when timestamps and bars differ in length.
	ErrMisaligned = errors.New("price series timestamps do not match bars")
)

// Computation outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeUnknown     = "unknown"
)

// Observer receives one call per requested indicator name.
type Observer interface {
	ObserveCompute(name, outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveCompute(string, string, time.Duration) {}

// Config is the discovery view of a registered spec.
type Config struct {
	Name   string         `json:"name"`
	Params any            `json:"params"`
	Type   model.PlotType `json:"type"`
}

// Registry maps indicator names to specs and runs batch calculations.
// Register everything at startup; Calculate does not mutate the registry and
// is safe for concurrent use afterwards.
type Registry struct {
	backend  Backend
	log      zerolog.Logger
	observer Observer
	specs    map[string]Spec
}

// Option customizes a Registry.
type Option func(*Registry)

// WithObserver installs a computation observer (e.g. metrics).
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRegistry creates an empty registry on top of the given backend.
func NewRegistry(backend Backend, log zerolog.Logger, opts ...Option) *Registry {
	if backend == nil {
		backend = NativeBackend{}
	}
	r := &Registry{
		backend:  backend,
		log:      log,
		observer: noopObserver{},
		specs:    make(map[string]Spec),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry creates a registry holding the given specs, or DefaultSpecs when none are passed.
func NewDefaultRegistry(backend Backend, log zerolog.Logger, specs []Spec, opts ...Option) (*Registry, error) {
	r := NewRegistry(backend, log, opts...)
	if len(specs) == 0 {
		specs = DefaultSpecs()
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces the spec stored under its name.
func (r *Registry) Register(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	r.specs[spec.Name()] = spec
	r.log.Info().Str("indicator", spec.Name()).Msg("indicator registered")
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Backend returns the numeric backend in use.
func (r *Registry) Backend() Backend { return r.backend }

// ListConfigs returns every registered spec for client discovery, sorted by name.
func (r *Registry) ListConfigs() []Config {
	configs := make([]Config, 0, len(r.specs))
	for name, spec := range r.specs {
		configs = append(configs, Config{Name: name, Params: spec.Params, Type: spec.PlotType()})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

// Calculate computes the named indicators in request order. Unknown names and
// unavailable computations are skipped; duplicates produce duplicate entries.
// Every computation works on its own copy of series.
func (r *Registry) Calculate(names []string, series model.PriceSeries) ([]model.IndicatorOutput, error) {
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if len(series.Timestamps) != len(series.Bars) {
		return nil, ErrMisaligned
	}

	results := make([]model.IndicatorOutput, 0, len(names))
	for _, name := range names {
		spec, ok := r.specs[name]
		if !ok {
			r.log.Warn().Str("indicator", name).Msg("indicator not found, skipping")
			r.observer.ObserveCompute(name, OutcomeUnknown, 0)
			continue
		}
		out, ok := r.run(spec, series)
		if ok {
			results = append(results, *out)
		}
	}
	return results, nil
}

// Evaluate runs an ad-hoc spec that need not be registered, with the same
// backend and observer as Calculate.
func (r *Registry) Evaluate(spec Spec, series model.PriceSeries) (*model.IndicatorOutput, bool) {
	return r.run(spec, series)
}

func (r *Registry) run(spec Spec, series model.PriceSeries) (*model.IndicatorOutput, bool) {
	start := time.Now()
	out, err := Compute(spec, series.Clone(), r.backend)
	elapsed := time.Since(start)
	if err != nil {
		r.log.Warn().Err(err).Str("indicator", spec.Name()).Str("backend", r.backend.Name()).
			Msg("indicator unavailable, skipping")
		r.observer.ObserveCompute(spec.Name(), OutcomeUnavailable, elapsed)
		return nil, false
	}
	r.observer.ObserveCompute(spec.Name(), OutcomeOK, elapsed)
	return out, true
}
