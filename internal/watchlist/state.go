package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"StockLens/internal/model"
)

// LoadState reads the watchlist state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.WatchlistState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.WatchlistState{Notified: make(map[string]model.NotifiedSignals)}, nil
		}
		return nil, err
	}
	var state model.WatchlistState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Notified == nil {
		state.Notified = make(map[string]model.NotifiedSignals)
	}
	return &state, nil
}

// SaveState writes the watchlist state to a JSON file, creating its directory.
func SaveState(filePath string, state *model.WatchlistState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}
