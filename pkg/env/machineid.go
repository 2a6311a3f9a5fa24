// Package env provides what the commands share to set themselves up.
package env

import (
	"flag"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the machine id hash so the raw id never leaves the machine.
const AppID = "picoha"

// MachineID retrieves the unique ID identifying the machine, or fallback
// when the platform doesn't provide one.
func MachineID(fallback string) string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return fallback
	}
	return id
}

// FlagsSet returns the names of flags set on the command line.
func FlagsSet() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
