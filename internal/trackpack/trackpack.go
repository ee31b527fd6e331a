// Package trackpack loads the bundled default tracks into the track
// storage collection at startup. The set of bundled files is declared
// by a small YAML manifest alongside them (manifest.yaml), read with
// gopkg.in/yaml.v3 in the idiom of niceyeti-tabular/tabular/v2's
// config loading, rather than a hardcoded Go slice of filenames.
package trackpack

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"racehub/internal/storage"
	"racehub/internal/track"
)

// Manifest lists the track JSON files bundled with the server.
type Manifest struct {
	Tracks []string `yaml:"tracks"`
}

// LoadManifest reads and parses manifest.yaml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("trackpack: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("trackpack: parse manifest: %w", err)
	}
	return &m, nil
}

// Seed loads every track named in dir's manifest and stores it if not
// already present. A track already in storage is left untouched, so
// restarting the server never clobbers one edited through the HTTP
// API with the bundled original.
func Seed(dir string, tracks *storage.Tracks) error {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return err
	}

	for _, name := range manifest.Tracks {
		trk, err := track.Load(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("trackpack: load %s: %w", name, err)
		}
		if _, err := tracks.Track(trk.ID); err == nil {
			continue
		}
		if err := tracks.Put(trk); err != nil {
			return fmt.Errorf("trackpack: seed %s: %w", name, err)
		}
	}
	return nil
}
