package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/picoha.go/pkg/framework"
	"github.com/robotalks/picoha.go/pkg/hw"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "picoha.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
transport = "ws://127.0.0.1:0/dev"
provider = "sim"
version = "2.0.0"
id = "bench-1"
poll_interval = "5ms"
staging_size = 64
pins = [4, -1, 17]
`)
	conf := NewConfig()
	conf.Provider = "rpio"
	conf.MetricsAddr = ":9100"
	require.NoError(t, conf.LoadFile(path, map[string]bool{"version": true}))
	require.Equal(t, "ws://127.0.0.1:0/dev", conf.Transport)
	require.Equal(t, "sim", conf.Provider)
	require.Equal(t, Default().Version, conf.Version)
	require.Equal(t, "bench-1", conf.ID)
	require.Equal(t, ":9100", conf.MetricsAddr)
	require.Equal(t, 5*time.Millisecond, conf.PollInterval)
	require.Equal(t, 64, conf.StagingSize)
	require.Equal(t, []int{4, -1, 17}, conf.Pins)

	pins, err := conf.PinMap()
	require.NoError(t, err)
	line, err := pins.Lookup(2)
	require.NoError(t, err)
	require.Equal(t, 17, line)
	_, err = pins.Lookup(1)
	require.Equal(t, hw.ErrInvalidPin, err)

	id := conf.Identity()
	require.Equal(t, []byte("bench-1"), id.ID)
}

func TestLoadFileErrors(t *testing.T) {
	conf := NewConfig()
	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil))
	require.Error(t, conf.LoadFile(writeFile(t, `poll_interval = "soon"`), nil))
	conf.ConfigFile = ""
	require.NoError(t, conf.Load())
}

func TestNewProvider(t *testing.T) {
	conf := NewConfig()
	conf.Provider = "sim"
	p, err := conf.NewProvider()
	require.NoError(t, err)
	require.IsType(t, &hw.Sim{}, p)

	conf.Provider = "fpga"
	_, err = conf.NewProvider()
	require.Error(t, err)

	conf.Provider = "sim"
	conf.Pins = []int{-5}
	_, err = conf.NewProvider()
	require.Error(t, err)
}

func TestNewEnv(t *testing.T) {
	conf := NewConfig()
	conf.Transport = "ws://127.0.0.1:0/picoha"
	conf.Provider = "sim"
	conf.ID = "x"
	conf.MetricsAddr = "127.0.0.1:0"
	e, err := conf.NewEnv()
	require.NoError(t, err)
	require.NotNil(t, e.Pipeline.Observer)
	require.NotNil(t, e.Registry)

	loop := fx.NewLoop()
	e.AddToLoop(loop)
	require.Equal(t, conf.PollInterval, loop.Interval)
	require.NoError(t, e.Close())

	conf.Transport = "carrier-pigeon://"
	_, err = conf.NewEnv()
	require.Error(t, err)
}
