package main

import (
	"github.com/robotalks/picoha.go/pkg/cli/sh"
	env "github.com/robotalks/picoha.go/pkg/env/host"

	_ "github.com/robotalks/picoha.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
