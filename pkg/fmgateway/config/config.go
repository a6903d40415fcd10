package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const (
	DefaultBaudRate      = 460800
	DefaultClockInterval = 10 * time.Millisecond
	DefaultMaxBuffered   = 2000
	DefaultPollInterval  = 5 * time.Second
)

type Config struct {
	LogLevel      string        `yaml:"log_level"`
	ClockInterval time.Duration `yaml:"clock_interval"`
	Modem         Modem         `yaml:"modem"`
	Network       Network       `yaml:"network"`
	VizServer     struct {
		Enabled        bool          `yaml:"enabled"`
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval"`
		SampleRate     int           `yaml:"sample_rate"`
	} `yaml:"viz_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

type Modem struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

type Network struct {
	LocalAddress  string        `yaml:"local_address"`
	RemoteAddress string        `yaml:"remote_address"`
	MaxBuffered   int           `yaml:"max_buffered"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(contents)
}

// Parse applies defaults to the YAML document and validates the result.
func Parse(contents []byte) (*Config, error) {
	cfg := &Config{
		LogLevel:      "info",
		ClockInterval: DefaultClockInterval,
		Modem: Modem{
			BaudRate: DefaultBaudRate,
		},
		Network: Network{
			MaxBuffered:  DefaultMaxBuffered,
			PollInterval: DefaultPollInterval,
		},
	}
	cfg.VizServer.Port = 8080
	cfg.VizServer.UpdateInterval = time.Second
	cfg.VizServer.SampleRate = 8000

	if err := yaml.UnmarshalStrict(contents, cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling yaml file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Modem.Port == "" {
		return errors.New("must specify modem port")
	}
	if c.Modem.BaudRate <= 0 {
		return fmt.Errorf("invalid modem baud rate %d", c.Modem.BaudRate)
	}
	if c.Network.LocalAddress == "" || c.Network.RemoteAddress == "" {
		return errors.New("must specify network local and remote address")
	}
	if c.Network.MaxBuffered < 2 {
		return fmt.Errorf("network max_buffered %d too small", c.Network.MaxBuffered)
	}
	if c.ClockInterval <= 0 {
		return fmt.Errorf("invalid clock interval %s", c.ClockInterval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the configured log level. Validate has already checked it.
func (c *Config) Level() zerolog.Level {
	level, _ := zerolog.ParseLevel(c.LogLevel)
	return level
}
