// Package bridge sets up the MQTT bridge process.
package bridge

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/picoha.go/pkg/bridge/mqtt"
	"github.com/robotalks/picoha.go/pkg/env"
	"github.com/robotalks/picoha.go/pkg/env/host"
	fx "github.com/robotalks/picoha.go/pkg/framework"
)

// Config provides options to setup a bridge.
type Config struct {
	// MQTT is the broker URL, the path being the topic prefix.
	// e.g. mqtt://localhost:1883/pza/bench/picoha/
	MQTT         string
	ConfigFile   string
	PollInterval time.Duration
	IOs          []mqtt.IO
	Host         *host.Config
}

var defaultConfig = Config{
	MQTT:         "mqtt://localhost:1883/",
	PollInterval: mqtt.DefaultPollInterval,
	Host:         host.Default(),
}

func init() {
	if val := os.Getenv("PICOHA_MQTT_URL"); val != "" {
		defaultConfig.MQTT = val
	}
	if val := os.Getenv("PICOHA_BRIDGE_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
}

// SetupFlags sets command line flags, including the host ones.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTT, "mqtt", defaultConfig.MQTT, "MQTT broker URL")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "TOML config file")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Input polling interval")
	host.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Host = host.NewConfig()
	conf.IOs = nil
	return &conf
}

type fileConfig struct {
	MQTT         string    `toml:"mqtt"`
	Port         string    `toml:"port"`
	PollInterval string    `toml:"poll_interval"`
	IO           []mqtt.IO `toml:"io"`
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
//
//	mqtt = "mqtt://broker:1883/pza/bench/"
//	[[io]]
//	name = "led"
//	pin = 25
//	direction = "out"
func (c *Config) LoadFile(path string, skip map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load bridge config: %w", err)
	}
	if meta.IsDefined("mqtt") && !skip["mqtt"] {
		c.MQTT = strings.TrimSpace(raw.MQTT)
	}
	if meta.IsDefined("port") && !skip["port"] {
		c.Host.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("poll_interval") && !skip["poll"] {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if meta.IsDefined("io") {
		c.IOs = raw.IO
	}
	return nil
}

// Env is the env of a bridge process.
type Env struct {
	Config *Config
	Conn   *host.Conn
	Queue  *mqtt.Queue
	Bridge *mqtt.Bridge
}

// NewEnv connects the adapter and the broker.
func (c *Config) NewEnv() (*Env, error) {
	if len(c.IOs) == 0 {
		return nil, fmt.Errorf("no io configured")
	}
	queue, err := mqtt.NewQueueFromURL(c.MQTT)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}
	conn, err := c.Host.Connect()
	if err != nil {
		return nil, err
	}
	b, err := mqtt.NewBridge(queue, conn, c.IOs)
	if err != nil {
		conn.Close()
		return nil, err
	}
	b.PollInterval = c.PollInterval
	if token := queue.Connect(); token.Wait() && token.Error() != nil {
		conn.Close()
		return nil, fmt.Errorf("connect %s: %w", c.MQTT, token.Error())
	}
	return &Env{Config: c, Conn: conn, Queue: queue, Bridge: b}, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds the bridge to loop, where it subscribes and polls.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.OnError = fx.LogErrors
	loop.AddPoller(fx.PrLvProcess, e.Bridge)
}

// Close disconnects the broker and the adapter.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	errs.Add(e.Queue.Close(), e.Conn.Close())
	return errs.Aggregate()
}
