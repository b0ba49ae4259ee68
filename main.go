package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jacekbilski/vulkan-christmas-tree/engine"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/config"
)

func main() {
	app, err := engine.New(config.DefaultPath)
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
		os.Exit(0)
	}()

	if err := app.Run(); err != nil {
		_ = app.Shutdown()
		os.Exit(1)
	}

	if err := app.Shutdown(); err != nil {
		os.Exit(1)
	}
}
