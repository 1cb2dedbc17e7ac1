/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-engine/engine"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML engine configuration")
	flag.Parse()

	cfg := core.DefaultConfig()
	if *configPath != "" {
		c, err := core.LoadConfig(*configPath)
		if err != nil {
			core.LogFatal("%s", err)
		}
		cfg = c
	}

	tb := testbed.NewTestGame(cfg)

	e, err := engine.New(tb.Game, nil)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("%s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// ask the frame loop to stop, shutdown happens on this goroutine
	go func() {
		<-sigCh
		e.Events().Fire(core.EventCodeApplicationQuit, nil, core.EventContext{})
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
