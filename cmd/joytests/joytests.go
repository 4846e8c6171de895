package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/joystick"
)

func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	jDev := os.Getenv(config.EnvJoystick)
	if jDev == "" {
		jDev = config.DefaultJoystick
	}
	var j *joystick.Joystick
	for {
		var err error
		j, err = joystick.NewJoystick(jDev)
		if err == nil {
			break
		}
		fmt.Printf("Waiting for joystick: %v.\n", err)
		time.Sleep(1 * time.Second)
	}
	defer j.Close()

	events := make(chan *joystick.Event)
	go func() {
		defer cancel()
		err := j.Loop(ctx, events)
		fmt.Printf("Joystick failed: %v\n", err)
	}()
	for je := range events {
		fmt.Println(je)
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
