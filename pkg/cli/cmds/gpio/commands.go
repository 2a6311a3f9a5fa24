package gpio

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/picoha.go/pkg/cli/sh"
	"github.com/robotalks/picoha.go/pkg/l0/comm"
	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

// ParsePin parses a pin number.
func ParsePin(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid PIN %q", s)
	}
	return uint8(n), nil
}

// ParseValue parses a logic level.
func ParseValue(s string) (gpio.Value, error) {
	switch strings.ToLower(s) {
	case "0", "low", "off":
		return gpio.Low, nil
	case "1", "high", "on":
		return gpio.High, nil
	}
	return 0, fmt.Errorf("invalid VALUE %q", s)
}

// printableID shows an id as text when it is, hex otherwise.
func printableID(id []byte) string {
	for _, r := range string(id) {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return hex.EncodeToString(id)
		}
	}
	return string(id)
}

func pinArgs(c *ishell.Context, n int, usage string) (uint8, bool) {
	if len(c.Args) < n {
		c.Err(fmt.Errorf("%s required", usage))
		return 0, false
	}
	pin, err := ParsePin(c.Args[0])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	return pin, true
}

var (
	// PingCmd exposes Ping command.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				return nil, client.Ping(ctx)
			})
		}),
	}

	// ItfTypeCmd exposes ItfType command.
	ItfTypeCmd = ishell.Cmd{
		Name:    "itf",
		Aliases: []string{"interface"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				typ, err := client.InterfaceType(ctx)
				if err != nil {
					return nil, err
				}
				if typ == gpio.ItfTypeGpio {
					return "gpio", nil
				}
				return fmt.Sprintf("0x%04x", typ), nil
			})
		}),
	}

	// VersionCmd exposes Version command.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"ver"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				return client.Version(ctx)
			})
		}),
	}

	// IDCmd exposes IdGet command.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				id, err := client.ID(ctx)
				if err != nil {
					return nil, err
				}
				return printableID(id), nil
			})
		}),
	}

	// DirSetCmd exposes GpioDirSet command.
	DirSetCmd = ishell.Cmd{
		Name:    "gpio.dir",
		Aliases: []string{"dir"},
		Help:    "PIN in|pullup|out",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			pin, ok := pinArgs(c, 2, "PIN DIR")
			if !ok {
				return
			}
			dir, err := gpio.ParseDir(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				return nil, client.SetDirection(ctx, pin, dir)
			})
		}),
	}

	// DirGetCmd exposes GpioDirGet command.
	DirGetCmd = ishell.Cmd{
		Name:    "gpio.dir?",
		Aliases: []string{"dirget"},
		Help:    "PIN",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			pin, ok := pinArgs(c, 1, "PIN")
			if !ok {
				return
			}
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				dir, err := client.Direction(ctx, pin)
				if err != nil {
					return nil, err
				}
				return dir.String(), nil
			})
		}),
	}

	// WriteCmd exposes GpioWrite command.
	WriteCmd = ishell.Cmd{
		Name:    "gpio.write",
		Aliases: []string{"write", "w"},
		Help:    "PIN 0|1",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			pin, ok := pinArgs(c, 2, "PIN VALUE")
			if !ok {
				return
			}
			val, err := ParseValue(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				return nil, client.Write(ctx, pin, val)
			})
		}),
	}

	// ReadCmd exposes GpioRead command.
	ReadCmd = ishell.Cmd{
		Name:    "gpio.read",
		Aliases: []string{"read", "r"},
		Help:    "PIN",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			pin, ok := pinArgs(c, 1, "PIN")
			if !ok {
				return
			}
			sh.DoCommand(c, func(ctx context.Context, client *comm.Client) (interface{}, error) {
				val, err := client.Read(ctx, pin)
				if err != nil {
					return nil, err
				}
				return uint8(val), nil
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&PingCmd,
		&ItfTypeCmd,
		&VersionCmd,
		&IDCmd,
		&DirSetCmd,
		&DirGetCmd,
		&WriteCmd,
		&ReadCmd,
	)
}
