package transport

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/robotalks/picoha.go/pkg/framework"
)

// Device is the transport seen by the device pipeline. Read never blocks;
// Run feeds it in the background.
type Device interface {
	io.ReadWriteCloser
	framework.Runnable
}

// OpenDevice opens a device transport from a URL:
//
//	serial:///dev/ttyACM0?baud=115200
//	ws://:8080/picoha
func OpenDevice(rawURL string, stagingSize int) (Device, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URL: %w", err)
	}
	switch u.Scheme {
	case "serial":
		name, baud, err := serialParams(u)
		if err != nil {
			return nil, err
		}
		port, err := OpenSerial(name, baud)
		if err != nil {
			return nil, err
		}
		return NewPort(port, stagingSize), nil
	case "ws":
		return NewWSServer(u.Host, u.Path, stagingSize), nil
	}
	return nil, fmt.Errorf("unknown transport URL scheme: %q", u.Scheme)
}

// Dial opens a host transport from a URL. Besides the forms of OpenDevice,
// serial://auto locates the adapter by its USB identifiers. Reads on
// serial ports return 0, nil after ReadTimeout.
func Dial(rawURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid port URL: %w", err)
	}
	switch u.Scheme {
	case "serial":
		name, baud, err := serialParams(u)
		if err != nil {
			return nil, err
		}
		return OpenSerial(name, baud)
	case "ws", "wss":
		return DialWS(rawURL)
	}
	return nil, fmt.Errorf("unknown port URL scheme: %q", u.Scheme)
}

func serialParams(u *url.URL) (name string, baud int, err error) {
	name = u.Host + u.Path
	if name == "auto" {
		if name, err = FindAdapter(); err != nil {
			return
		}
	}
	if name == "" {
		err = fmt.Errorf("missing serial port name in %q", u.String())
		return
	}
	if val := u.Query().Get("baud"); val != "" {
		if baud, err = strconv.Atoi(val); err != nil {
			err = fmt.Errorf("invalid baud rate %q", val)
			return
		}
	}
	return
}
