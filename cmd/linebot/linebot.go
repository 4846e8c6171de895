package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linemode"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/pausemode"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/rtsched"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/screen"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/testmode"
)

type Mode interface {
	Name() string
	StartupSound() string
	Start(ctx context.Context)
	Stop()
}

type JoystickUser interface {
	OnJoystickEvent(event *joystick.Event)
}

func main() {
	fmt.Println("---- Linebot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Printf("Bad config: %+v\n", err)
		os.Exit(1)
	}
	if err := config.WriteInUse(cfg, config.InUsePath); err != nil {
		fmt.Println("Failed to write in-use config:", err)
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	if err := rtsched.Prepare(); err != nil {
		fmt.Println("Failed to prepare for real-time running:", err)
	}
	defer rtsched.Release()

	// Initialise the hardware.
	hw := initHardware(cfg)
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	hw.Start(ctx)

	reporter := initReporter(ctx, cfg)

	// Wait for the joystick and kick off a background thread to read from it.
	joystickEvents := initJoystick(cancel, ctx)

	hw.PlaySound("/sounds/linebotstart.wav")

	modes := &modeRing{
		hw: hw,
		modes: []Mode{
			linemode.New(hw, cfg, reporter, cfg.Intersections()),
			linemode.New(hw, cfg, reporter, !cfg.Intersections()),
			&pausemode.PauseMode{Motors: hw.Motors(), Indicator: hw.Indicator()},
			testmode.New(hw, cfg.Duties()),
		},
	}
	modes.start(ctx)
	defer func() { modes.active().Stop() }()

	fmt.Println("Waiting for events...")
	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, shutting down")
			return
		case event, ok := <-joystickEvents:
			if !ok {
				fmt.Println("Joystick events channel closed!")
				cancel()
				return
			}
			fmt.Printf("Joy: %s\n", event)
			switch {
			case event.IsPress(joystick.ButtonOptions):
				modes.switchBy(ctx, 1)
			case event.IsPress(joystick.ButtonShare):
				modes.switchBy(ctx, -1)
			default:
				forward(modes.active(), event)
			}
		case <-watchdog.C:
			fmt.Println("Main loop still running")
		}
	}
}

// modeRing is the list of modes that Options/Share step through.
type modeRing struct {
	hw    hardware.Interface
	modes []Mode
	idx   int
}

func (r *modeRing) active() Mode {
	return r.modes[r.idx]
}

func (r *modeRing) start(ctx context.Context) {
	m := r.active()
	fmt.Printf("----- %s -----\n", m.Name())
	screen.SetStatus(screen.Status{Mode: m.Name()})
	m.Start(ctx)
}

func (r *modeRing) switchBy(ctx context.Context, delta int) {
	fmt.Println("Mode switch", delta)
	r.active().Stop()
	if err := r.hw.Motors().Stop(); err != nil {
		fmt.Println("Mode switch: failed to stop motors:", err)
	}
	r.idx = (r.idx + delta + len(r.modes)) % len(r.modes)
	r.hw.PlaySound(r.active().StartupSound())
	r.start(ctx)
}

// forward passes an event to modes that take joystick input.  Modes only queue the event for
// their own goroutine, so one that blocks for a second has deadlocked.
func forward(m Mode, event *joystick.Event) {
	ju, ok := m.(JoystickUser)
	if !ok {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ju.OnJoystickEvent(event)
	}()
	timeout := time.NewTimer(1 * time.Second)
	defer timeout.Stop()
	select {
	case <-done:
	case <-timeout.C:
		panic(fmt.Sprintf("Deadlock? %s blocked OnJoystickEvent for >1s", m.Name()))
	}
}

func initHardware(cfg config.Config) hardware.Interface {
	if os.Getenv(config.EnvDummyHW) != "" {
		fmt.Println("Using dummy hardware")
		return hardware.NewDummy(cfg.Motors.PWMPeriod)
	}
	hw, err := hardware.New(cfg)
	if err != nil {
		fmt.Printf("Failed to initialise hardware: %+v\n", err)
		os.Exit(1)
	}
	return hw
}

// initReporter sends odometry reports to the console and, if configured, the serial port.
func initReporter(ctx context.Context, cfg config.Config) diagnostics.Reporter {
	sinks := []diagnostics.Reporter{&diagnostics.WriterReporter{W: os.Stdout}}
	if cfg.Hardware.SerialPort != "" {
		sr, err := diagnostics.OpenSerial(cfg.Hardware.SerialPort, cfg.Hardware.SerialBaud)
		if err != nil {
			fmt.Println("Serial diagnostics disabled:", err)
		} else {
			go func() {
				<-ctx.Done()
				_ = sr.Close()
			}()
			sinks = append(sinks, sr)
		}
	}
	fanout := diagnostics.NewFanout(16, sinks...)
	go fanout.Run(ctx)
	return fanout
}

func initJoystick(cancel context.CancelFunc, ctx context.Context) chan *joystick.Event {
	joystickEvents := make(chan *joystick.Event, 1)
	firstLog := true
	for {
		jDev := os.Getenv(config.EnvJoystick)
		if jDev == "" {
			jDev = config.DefaultJoystick
		}
		j, err := joystick.NewJoystick(jDev)
		if err != nil {
			if firstLog {
				screen.SetStatus(screen.Status{Mode: "NO JOY", Paused: true})
				fmt.Printf("Waiting for joystick: %v.\n", err)
				firstLog = false
			}
			if ctx.Err() != nil {
				close(joystickEvents)
				return joystickEvents
			}
			time.Sleep(1 * time.Second)
			continue
		}

		fmt.Printf("Opened joystick\n")
		go func() {
			defer cancel()
			defer j.Close()
			err := j.Loop(ctx, joystickEvents)
			fmt.Printf("Joystick failed: %v\n", err)
		}()
		break
	}
	return joystickEvents
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
