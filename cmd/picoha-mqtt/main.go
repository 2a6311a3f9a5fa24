package main

import (
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	env "github.com/robotalks/picoha.go/pkg/env/bridge"
	"github.com/robotalks/picoha.go/pkg/framework"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.Default()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}
	e := conf.MustNewEnv()
	defer e.Close()

	loop := framework.NewLoop()
	loop.Interval = 10 * time.Millisecond
	e.AddToLoop(loop)
	runner := framework.NewRunner().HandleSignals()
	if err := runner.Go(loop).Wait(); err != nil {
		glog.Errorf("stopped: %v", err)
	}
}
