// Package config reads and writes the process configuration file. Files
// ending in .toml are TOML, everything else is YAML.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Storage struct {
	Backend     string `yaml:"backend" toml:"backend"` // "fs" | "redis"
	RedisAddr   string `yaml:"redis_addr,omitempty" toml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty" toml:"redis_prefix,omitempty"`
}

type ArtnetOutput struct {
	Host          string `yaml:"host" toml:"host"`
	Port          int    `yaml:"port,omitempty" toml:"port,omitempty"`
	StartUniverse int    `yaml:"start_universe" toml:"start_universe"`
	PhysicalPort  int    `yaml:"physical_port,omitempty" toml:"physical_port,omitempty"`
}

type Artnet struct {
	Listen        string         `yaml:"listen" toml:"listen"` // e.g. 0.0.0.0:6454, empty disables the provider
	RateLimitHz   float64        `yaml:"rate_limit_hz" toml:"rate_limit_hz"`
	PollTimeoutMs int            `yaml:"poll_timeout_ms" toml:"poll_timeout_ms"`
	Outputs       []ArtnetOutput `yaml:"outputs,omitempty" toml:"outputs,omitempty"`
}

type LED struct {
	Driver        string `yaml:"driver" toml:"driver"` // "sim" | "spi" | "screen" | "none"
	Dev           string `yaml:"dev,omitempty" toml:"dev,omitempty"`
	SpeedHz       int    `yaml:"speed_hz,omitempty" toml:"speed_hz,omitempty"`
	XFlipEveryRow bool   `yaml:"x_flip_every_row" toml:"x_flip_every_row"`
	ColorOrder    string `yaml:"color_order" toml:"color_order"`
}

type Power struct {
	WhiteCap  float64 `yaml:"white_cap" toml:"white_cap"`
	LEDChanMA float64 `yaml:"led_chan_ma" toml:"led_chan_ma"`
	BudgetMA  float64 `yaml:"budget_ma" toml:"budget_ma"`
	Knee      float64 `yaml:"knee" toml:"knee"`
}

type Config struct {
	Width    int    `yaml:"width" toml:"width"`
	Height   int    `yaml:"height" toml:"height"`
	FPS      int    `yaml:"fps" toml:"fps"`
	DataDir  string `yaml:"data_dir" toml:"data_dir"`
	Addr     string `yaml:"addr" toml:"addr"`
	LogLevel string `yaml:"log_level" toml:"log_level"`

	Storage Storage `yaml:"storage" toml:"storage"`
	Artnet  Artnet  `yaml:"artnet" toml:"artnet"`
	LED     LED     `yaml:"led" toml:"led"`
	Power   Power   `yaml:"power" toml:"power"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Width:    33,
		Height:   32,
		FPS:      60,
		DataDir:  "data",
		Addr:     ":8080",
		LogLevel: "info",
		Storage:  Storage{Backend: "fs", RedisAddr: "127.0.0.1:6379", RedisPrefix: "shades"},
		Artnet:   Artnet{RateLimitHz: 30, PollTimeoutMs: 5},
		LED:      LED{Driver: "sim", Dev: "", SpeedHz: 2500000, ColorOrder: "GRB"},
		Power:    Power{WhiteCap: 0.85, LEDChanMA: 20, Knee: 0.9},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path over a copy of base. Fields absent from the file keep
// base's values.
func Load(path string, base *Config) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := *base
	c.Artnet.Outputs = append([]ArtnetOutput(nil), base.Artnet.Outputs...)
	if isTOML(path) {
		if _, err := toml.Decode(string(b), &c); err != nil {
			return nil, err
		}
		return &c, nil
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	var b []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		b = buf.Bytes()
	} else {
		var err error
		if b, err = yaml.Marshal(c); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0644)
}
