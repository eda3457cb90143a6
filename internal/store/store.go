// Package store persists per-band configuration as one JSON document keyed
// by the band's MAC address. The protocol core never touches it; the
// surrounding application reads and writes it around device operations.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bandmate/bandmate/internal/band"
)

const fileName = "bands.json"

// BandConf is one band's stored configuration. Absent fields stay nil/empty.
type BandConf struct {
	AuthKey      string             `json:"auth_key,omitempty"`
	ActivityGoal *band.ActivityGoal `json:"activity_goal,omitempty"`
	BandLock     *band.Lock         `json:"band_lock,omitempty"`
	Alias        string             `json:"alias,omitempty"`
}

// Store is the loaded configuration set. Load once at startup with Open,
// save on demand with Save.
type Store struct {
	path  string
	bands map[string]*BandConf
}

// Open loads the store from dir, creating the directory if needed. A
// missing file is an empty store, not an error.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	s := &Store{
		path:  filepath.Join(dir, fileName),
		bands: make(map[string]*BandConf),
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.bands); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", s.path, err)
	}
	return s, nil
}

// Band returns the configuration record for a MAC address, creating an
// empty one if none exists yet.
func (s *Store) Band(mac string) *BandConf {
	conf, ok := s.bands[mac]
	if !ok {
		conf = &BandConf{}
		s.bands[mac] = conf
	}
	return conf
}

// Alias returns the band's configured alias, or the MAC address if none is
// set.
func (s *Store) Alias(mac string) string {
	if conf, ok := s.bands[mac]; ok && conf.Alias != "" {
		return conf.Alias
	}
	return mac
}

// Save writes the whole store back to disk.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.bands, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	return nil
}
