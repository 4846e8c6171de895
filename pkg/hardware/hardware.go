package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/indicator"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/propeller"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/screen"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/sound"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/tachometer"
)

type Hardware struct {
	config config.Hardware

	sensor *linesensor.QTRX
	tach   *tachometer.Tachometer
	led    *indicator.LED
	motors *MotorController
	sounds *sound.Player

	cancel   context.CancelFunc
	loopDone sync.WaitGroup
}

var _ Interface = (*Hardware)(nil)

func New(cfg config.Config) (*Hardware, error) {
	hc := cfg.Hardware
	sensor, err := linesensor.NewQTRX(hc.SensorPins, hc.EmitterPins)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open line sensor")
	}
	tach, err := tachometer.New(hc.TachometerSPI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open encoders")
	}
	led, err := indicator.New(hc.LEDPins.Red, hc.LEDPins.Green, hc.LEDPins.Blue)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open indicator")
	}
	motors := NewMotorController(cfg.Motors.PWMPeriod, func() (MotorSpeeds, error) {
		return propeller.New(hc.I2CBus, hc.PropellerFirmware)
	})
	return &Hardware{
		config: hc,
		sensor: sensor,
		tach:   tach,
		led:    led,
		motors: motors,
		sounds: sound.NewPlayer(),
	}, nil
}

func (h *Hardware) Start(ctx context.Context) {
	var loopCtx context.Context
	loopCtx, h.cancel = context.WithCancel(ctx)

	go screen.LoopUpdatingScreen(loopCtx, h.config.Framebuffer)

	var initDone sync.WaitGroup
	initDone.Add(1)
	h.loopDone.Add(1)
	go func() {
		defer h.loopDone.Done()
		h.motors.Loop(loopCtx, &initDone)
	}()
	initDone.Wait()
}

func (h *Hardware) LineSensor() linesensor.Sensor {
	return h.sensor
}

func (h *Hardware) Encoders() odometry.Source {
	return h.tach
}

func (h *Hardware) Motors() actuation.Motors {
	return h.motors
}

func (h *Hardware) Indicator() actuation.Indicator {
	return h.led
}

func (h *Hardware) PlaySound(path string) {
	h.sounds.Play(path)
}

func (h *Hardware) Shutdown() {
	fmt.Println("HW: Stopping motors")
	_ = h.motors.Stop()
	_ = h.led.SetColour(actuation.Off)
	// Give the motor loop a chance to send the stop before it exits.
	time.Sleep(30 * time.Millisecond)
	if h.cancel != nil {
		h.cancel()
		h.loopDone.Wait()
	}
	h.sounds.Close()
	fmt.Println("HW: Shut down")
}
