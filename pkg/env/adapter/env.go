// Package adapter sets up the device process: transport, GPIO provider and
// pipeline.
package adapter

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"

	fx "github.com/robotalks/picoha.go/pkg/framework"
	"github.com/robotalks/picoha.go/pkg/env"
	"github.com/robotalks/picoha.go/pkg/hw"
	"github.com/robotalks/picoha.go/pkg/l0/device"
	"github.com/robotalks/picoha.go/pkg/metrics"
	"github.com/robotalks/picoha.go/pkg/transport"
)

// Config provides options to setup a device.
type Config struct {
	// Transport is the URL of the host link.
	// e.g. serial:///dev/ttyGS0?baud=115200, ws://:8080/picoha
	Transport string
	// Provider selects the GPIO provider: sim or rpio.
	Provider string
	Version  string
	ID       string
	// ConfigFile is a TOML file overriding the defaults.
	ConfigFile string
	// MetricsAddr enables the Prometheus endpoint when not empty.
	MetricsAddr     string
	PollInterval    time.Duration
	PayloadCapacity int
	StagingSize     int
	// Pins maps wire pins to hardware lines, -1 marking a hole. Empty means
	// hw.DefaultPinMap.
	Pins []int
}

var defaultConfig = Config{
	Transport:       "ws://:8080/picoha",
	Provider:        "sim",
	Version:         device.DefaultVersion,
	PollInterval:    time.Millisecond,
	PayloadCapacity: device.DefaultConfig().PayloadCapacity,
	StagingSize:     transport.DefaultStagingSize,
}

func init() {
	if val := os.Getenv("PICOHA_TRANSPORT"); val != "" {
		defaultConfig.Transport = val
	}
	if val := os.Getenv("PICOHA_PROVIDER"); val != "" {
		defaultConfig.Provider = val
	}
	if val := os.Getenv("PICOHA_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
	defaultConfig.ID = os.Getenv("PICOHA_ID")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Transport, "transport", defaultConfig.Transport, "Transport URL")
	flag.StringVar(&defaultConfig.Provider, "provider", defaultConfig.Provider, "GPIO provider: sim, rpio")
	flag.StringVar(&defaultConfig.Version, "version", defaultConfig.Version, "Reported version")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Reported device ID, default from machine ID")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "TOML config file")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Transport polling interval")
	flag.IntVar(&defaultConfig.PayloadCapacity, "payload-capacity", defaultConfig.PayloadCapacity, "Max payload of received frames")
	flag.IntVar(&defaultConfig.StagingSize, "staging-size", defaultConfig.StagingSize, "Transport staging buffer size")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Pins = append([]int(nil), defaultConfig.Pins...)
	return &conf
}

type fileConfig struct {
	Transport       string `toml:"transport"`
	Provider        string `toml:"provider"`
	Version         string `toml:"version"`
	ID              string `toml:"id"`
	Metrics         string `toml:"metrics"`
	PollInterval    string `toml:"poll_interval"`
	PayloadCapacity int    `toml:"payload_capacity"`
	StagingSize     int    `toml:"staging_size"`
	Pins            []int  `toml:"pins"`
}

// Load applies ConfigFile, leaving alone what is set on the command line.
func (c *Config) Load() error {
	if c.ConfigFile == "" {
		return nil
	}
	return c.LoadFile(c.ConfigFile, env.FlagsSet())
}

// LoadFile applies values defined in a TOML file, except those keyed by
// flag name in skip.
func (c *Config) LoadFile(path string, skip map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load device config: %w", err)
	}
	apply := func(key, flagName string) bool {
		return meta.IsDefined(key) && !skip[flagName]
	}
	if apply("transport", "transport") {
		c.Transport = strings.TrimSpace(raw.Transport)
	}
	if apply("provider", "provider") {
		c.Provider = strings.TrimSpace(raw.Provider)
	}
	if apply("version", "version") {
		c.Version = raw.Version
	}
	if apply("id", "id") {
		c.ID = raw.ID
	}
	if apply("metrics", "metrics") {
		c.MetricsAddr = strings.TrimSpace(raw.Metrics)
	}
	if apply("poll_interval", "poll-interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if apply("payload_capacity", "payload-capacity") {
		c.PayloadCapacity = raw.PayloadCapacity
	}
	if apply("staging_size", "staging-size") {
		c.StagingSize = raw.StagingSize
	}
	if meta.IsDefined("pins") {
		c.Pins = raw.Pins
	}
	return nil
}

// PinMap builds the configured pin map.
func (c *Config) PinMap() (*hw.PinMap, error) {
	if len(c.Pins) == 0 {
		return hw.DefaultPinMap(), nil
	}
	return hw.NewPinMap(c.Pins)
}

// Identity builds the reported identity.
func (c *Config) Identity() device.Identity {
	id := c.ID
	if id == "" {
		id = env.MachineID(device.DefaultID)
	}
	return device.Identity{Version: c.Version, ID: []byte(id)}
}

// NewProvider creates the configured GPIO provider.
func (c *Config) NewProvider() (hw.Provider, error) {
	pins, err := c.PinMap()
	if err != nil {
		return nil, err
	}
	switch c.Provider {
	case "", "sim":
		return hw.NewSim(pins), nil
	case "rpio":
		return hw.OpenRPIO(pins)
	}
	return nil, fmt.Errorf("unknown provider %q", c.Provider)
}

// Env is the env of a device process.
type Env struct {
	Config    *Config
	Transport transport.Device
	Provider  hw.Provider
	Pipeline  *device.Pipeline
	Registry  *prometheus.Registry
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	provider, err := c.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("create provider error: %w", err)
	}
	tr, err := transport.OpenDevice(c.Transport, c.StagingSize)
	if err != nil {
		closeProvider(provider)
		return nil, fmt.Errorf("open transport error: %w", err)
	}
	e := &Env{Config: c, Transport: tr, Provider: provider}
	e.Pipeline = device.NewPipeline(
		device.NewDispatcher(c.Identity(), provider),
		tr,
		device.Config{PayloadCapacity: c.PayloadCapacity})
	if c.MetricsAddr != "" {
		e.Registry = metrics.NewRegistry()
		e.Pipeline.Observer = metrics.NewPipeline(e.Registry)
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds the pipeline and the background runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Interval = e.Config.PollInterval
	loop.AddPoller(fx.PrLvInput, e.Pipeline)
	loop.AddRunnable(fx.NamedRun("transport", e.Transport))
	if e.Registry != nil {
		loop.AddRunnable(fx.NamedRun("metrics", &metrics.Server{Addr: e.Config.MetricsAddr, Registry: e.Registry}))
	}
}

// Close releases transport and provider.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	errs.Add(e.Transport.Close(), closeProvider(e.Provider))
	return errs.Aggregate()
}

func closeProvider(p hw.Provider) error {
	if closer, ok := p.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
