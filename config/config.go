package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SongConfig defines one playable piece
type SongConfig struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path"`
}

// MIDIConfig defines the MIDI ports the app talks to
type MIDIConfig struct {
	OutputPort string `json:"outputPort"`
	InputPort  string `json:"inputPort,omitempty"` // external controller, optional
}

// PlaybackConfig stores the performance rendering parameters
type PlaybackConfig struct {
	VelocityMin     int   `json:"velocityMin"`
	VelocityMax     int   `json:"velocityMax"`
	PollIntervalUs  int   `json:"pollIntervalUs,omitempty"`  // dispatch poll, microseconds
	Deadpan         bool  `json:"deadpan,omitempty"`         // flatten expressive parameters
	LiteralVelocity uint8 `json:"literalVelocity,omitempty"` // fixed note-on velocity for plain MIDI files, 0 = off
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastSong int  `json:"lastSong,omitempty"`
	Debug    bool `json:"debug,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	MIDI     MIDIConfig     `json:"midi"`
	Playback PlaybackConfig `json:"playback"`
	Songs    []SongConfig   `json:"songs,omitempty"`
	UI       UIConfig       `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{
			OutputPort: "con-espressione",
		},
		Playback: PlaybackConfig{
			VelocityMin:    30,
			VelocityMax:    110,
			PollIntervalUs: 1000,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "con-espressione"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddSong adds or updates a song entry by path
func (c *Config) AddSong(song SongConfig) {
	for i := range c.Songs {
		if c.Songs[i].Path == song.Path {
			c.Songs[i] = song
			return
		}
	}
	c.Songs = append(c.Songs, song)
}
