package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/robotalks/picoha.go/pkg/framework"
)

// Adapter USB identifiers.
const (
	AdapterVID = "16C0"
	AdapterPID = "05E1"
)

// DefaultBaudRate is used when a serial URL doesn't specify one.
const DefaultBaudRate = 115200

// ReadTimeout bounds each read on a serial port.
const ReadTimeout = 100 * time.Millisecond

// OpenSerial opens a serial port in raw 8N1 mode. The port returns 0, nil
// from Read when nothing arrives within ReadTimeout.
func OpenSerial(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err = port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout %s: %w", name, err)
	}
	glog.Infof("serial %s opened at %d baud", name, baud)
	return port, nil
}

// PortInfo describes a serial port.
type PortInfo struct {
	Name    string `json:"name"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Adapter bool   `json:"adapter"`
}

func (p *PortInfo) String() string {
	if p.VID == "" {
		return p.Name
	}
	s := fmt.Sprintf("%s %s:%s", p.Name, p.VID, p.PID)
	if p.Serial != "" {
		s += " " + p.Serial
	}
	if p.Adapter {
		s += " (adapter)"
	}
	return s
}

// IsAdapter tells whether the USB identifiers are the adapter's.
func IsAdapter(vid, pid string) bool {
	return strings.EqualFold(vid, AdapterVID) && strings.EqualFold(pid, AdapterPID)
}

// ListPorts lists serial ports on the system.
func ListPorts() ([]*PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	infos := make([]*PortInfo, 0, len(ports))
	for _, p := range ports {
		info := &PortInfo{Name: p.Name}
		if p.IsUSB {
			info.VID, info.PID, info.Serial = p.VID, p.PID, p.SerialNumber
			info.Adapter = IsAdapter(p.VID, p.PID)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FindAdapter returns the name of the first serial port of an adapter.
func FindAdapter() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.Adapter {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("no adapter %s:%s found", AdapterVID, AdapterPID)
}

// Port is a device transport on a serial port. Bytes are pulled by a
// background reader into a Staging buffer.
type Port struct {
	*Staging
	port serial.Port
}

// NewPort wraps an opened serial port.
func NewPort(port serial.Port, stagingSize int) *Port {
	return &Port{Staging: NewStaging(stagingSize), port: port}
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Run implements framework.Runnable.
func (p *Port) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, p, func() error {
		return p.Fill(p.port, 64)
	})
}

// Close closes the port and the staging buffer.
func (p *Port) Close() error {
	p.Staging.Close()
	return p.port.Close()
}
