// Package watchlist tracks the securities scanned on a schedule and which of
// their signals were already pushed, so each signal is sent once per bar.
package watchlist

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"StockLens/internal/model"
)

// Manager guards the watchlist state and persists every change.
type Manager struct {
	mu       sync.Mutex
	state    *model.WatchlistState
	filePath string
	log      zerolog.Logger
}

// NewManager loads the state from disk. The seed symbols are used only when
// the stored state has none.
func NewManager(filePath string, seed []string, log zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if len(state.Symbols) == 0 {
		for _, s := range seed {
			state.Symbols = addSymbol(state.Symbols, s)
		}
	}

	m := &Manager{state: state, filePath: filePath, log: log}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Symbols returns a copy of the watched codes in insertion order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.state.Symbols))
	copy(out, m.state.Symbols)
	return out
}

// Add watches code. It reports false if code was already watched.
func (m *Manager) Add(code string) bool {
	code = normalizeCode(code)
	if code == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.state.Symbols)
	m.state.Symbols = addSymbol(m.state.Symbols, code)
	if len(m.state.Symbols) == before {
		return false
	}
	m.saveOrLog()
	return true
}

// Remove stops watching code and forgets its notified signals.
func (m *Manager) Remove(code string) bool {
	code = normalizeCode(code)
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, s := range m.state.Symbols {
		if s == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.state.Symbols = append(m.state.Symbols[:idx], m.state.Symbols[idx+1:]...)
	for k := range m.state.Notified {
		if strings.HasPrefix(k, code+"|") {
			delete(m.state.Notified, k)
		}
	}
	m.saveOrLog()
	return true
}

// Fresh returns the events not yet notified for this bar. A new bar date
// makes every event fresh again.
func (m *Manager) Fresh(code string, period model.Period, barDate string, events []model.SignalEvent) []model.SignalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.state.Notified[key(code, period)]
	if !ok || prev.BarDate != barDate {
		return events
	}
	seen := make(map[string]bool, len(prev.Signals))
	for _, s := range prev.Signals {
		seen[s] = true
	}
	var fresh []model.SignalEvent
	for _, e := range events {
		if !seen[e.Text] {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

// MarkNotified records events as pushed for this bar and saves the state.
func (m *Manager) MarkNotified(code string, period model.Period, barDate string, events []model.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(code, period)
	entry := m.state.Notified[k]
	if entry.BarDate != barDate {
		entry = model.NotifiedSignals{BarDate: barDate}
	}
	for _, e := range events {
		entry.Signals = append(entry.Signals, e.Text)
	}
	sort.Strings(entry.Signals)
	m.state.Notified[k] = entry
	return m.save()
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() model.WatchlistState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.state
	s.Symbols = append([]string(nil), m.state.Symbols...)
	s.Notified = make(map[string]model.NotifiedSignals, len(m.state.Notified))
	for k, v := range m.state.Notified {
		s.Notified[k] = v
	}
	return s
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}

func (m *Manager) saveOrLog() {
	if err := m.save(); err != nil {
		m.log.Error().Err(err).Msg("failed to save watchlist state")
	}
}

func key(code string, period model.Period) string {
	return normalizeCode(code) + "|" + string(period)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func addSymbol(symbols []string, code string) []string {
	code = normalizeCode(code)
	if code == "" {
		return symbols
	}
	for _, s := range symbols {
		if s == code {
			return symbols
		}
	}
	return append(symbols, code)
}
