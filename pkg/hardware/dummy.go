package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/indicator"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/propeller"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/tachometer"
)

// FullSpeedStepsPerSec is how fast the simulated wheels turn at motor speed 127.
const FullSpeedStepsPerSec = 1800

// Dummy is hardware for bench runs: the line sensor reading is set by hand, and the encoders
// follow whatever the motors were last told to do.
type Dummy struct {
	Sensor *linesensor.Dummy
	Tach   *tachometer.Dummy
	LED    *indicator.Dummy

	motors *MotorController

	cancel   context.CancelFunc
	loopDone sync.WaitGroup
}

var _ Interface = (*Dummy)(nil)

func NewDummy(pwmPeriod uint16) *Dummy {
	d := &Dummy{
		Sensor: linesensor.NewDummy(0b00011000),
		Tach:   tachometer.NewDummy(),
		LED:    indicator.NewDummy(),
	}
	d.motors = NewMotorController(pwmPeriod, func() (MotorSpeeds, error) {
		return propeller.Dummy(), nil
	})
	d.motors.onUpdate = func(l, r int8) {
		d.Tach.SetRates(float64(l)*FullSpeedStepsPerSec/127, float64(r)*FullSpeedStepsPerSec/127)
	}
	return d
}

func (d *Dummy) Start(ctx context.Context) {
	fmt.Println("DHW: Start")
	var loopCtx context.Context
	loopCtx, d.cancel = context.WithCancel(ctx)
	var initDone sync.WaitGroup
	initDone.Add(1)
	d.loopDone.Add(1)
	go func() {
		defer d.loopDone.Done()
		d.motors.Loop(loopCtx, &initDone)
	}()
	initDone.Wait()
}

func (d *Dummy) LineSensor() linesensor.Sensor {
	return d.Sensor
}

func (d *Dummy) Encoders() odometry.Source {
	return d.Tach
}

func (d *Dummy) Motors() actuation.Motors {
	return d.motors
}

func (d *Dummy) Indicator() actuation.Indicator {
	return d.LED
}

func (d *Dummy) PlaySound(path string) {
	fmt.Printf("DHW: PlaySound path=%v\n", path)
}

func (d *Dummy) Shutdown() {
	fmt.Println("DHW: Shutdown")
	_ = d.motors.Stop()
	if d.cancel != nil {
		d.cancel()
		d.loopDone.Wait()
	}
}
