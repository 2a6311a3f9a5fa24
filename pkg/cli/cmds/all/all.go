// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/picoha.go/pkg/cli/cmds/gpio"
)
