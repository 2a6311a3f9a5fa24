// Package host sets up host processes talking to an adapter.
package host

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picoha.go/pkg/hw"
	"github.com/robotalks/picoha.go/pkg/l0/comm"
	"github.com/robotalks/picoha.go/pkg/l0/device"
	"github.com/robotalks/picoha.go/pkg/transport"
)

// Config provides common options to connect to an adapter.
type Config struct {
	// Port is the URL of the adapter.
	// e.g. serial://auto, serial:///dev/ttyACM0, ws://host:8080/picoha, sim://
	Port    string
	Timeout time.Duration
}

var defaultConfig = Config{
	Port:    "serial://auto",
	Timeout: comm.DefaultTimeout,
}

func init() {
	if val := os.Getenv("PICOHA_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Adapter URL")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Command timeout")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Conn is a running client connection.
type Conn struct {
	*comm.Client
	URL string

	rw     io.ReadWriteCloser
	cancel context.CancelFunc
	doneCh chan struct{}
	err    error
}

// Connect opens the port and starts receiving.
func (c *Config) Connect() (*Conn, error) {
	u, err := url.Parse(c.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port URL: %w", err)
	}
	var rw io.ReadWriteCloser
	if u.Scheme == "sim" {
		rw = NewLoopback(device.DefaultIdentity(), hw.NewSim(nil))
	} else if rw, err = transport.Dial(c.Port); err != nil {
		return nil, err
	}
	return c.open(c.Port, rw, u.Scheme == "serial"), nil
}

// ConnectLoopback runs an in-process adapter on provider.
func (c *Config) ConnectLoopback(provider hw.Provider) *Conn {
	return c.open("sim://", NewLoopback(device.DefaultIdentity(), provider), false)
}

func (c *Config) open(portURL string, rw io.ReadWriteCloser, readTimeout bool) *Conn {
	fifo := comm.NewFIFO(rw)
	fifo.ReadTimeout = readTimeout
	conn := &Conn{Client: comm.NewClient(fifo), URL: portURL, rw: rw, doneCh: make(chan struct{})}
	conn.Client.Timeout = c.Timeout
	var ctx context.Context
	ctx, conn.cancel = context.WithCancel(context.Background())
	go conn.run(ctx)
	glog.Infof("connected to %s", portURL)
	return conn
}

// MustConnect connects to the adapter or fails.
func (c *Config) MustConnect() *Conn {
	conn, err := c.Connect()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.doneCh)
	c.err = c.Client.Run(ctx)
	if c.err != nil && c.err != context.Canceled {
		glog.Errorf("%s: %v", c.URL, c.err)
	}
}

// Done is closed when receiving stops.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCh
}

// Err returns why receiving stopped, after Done is closed.
func (c *Conn) Err() error {
	<-c.doneCh
	return c.err
}

// Close stops receiving and closes the port.
func (c *Conn) Close() error {
	c.cancel()
	err := c.rw.Close()
	<-c.doneCh
	return err
}
