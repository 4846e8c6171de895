package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MotorController turns the control task's duty commands into desired motor speeds.  The
// commands only update the desired values under the lock; Loop pushes them to the motor
// controller whenever they change, so the 1kHz control tick never waits on I2C.
type MotorController struct {
	lock sync.Mutex

	// Desired values.  Stored off in case we need to re-initialise the hardware.
	motorL, motorR int8
	pwmPeriod      uint16

	open       func() (MotorSpeeds, error)
	loopPeriod time.Duration

	// onUpdate, if set, is called (outside the lock) with every speed sent to the motors.
	onUpdate func(l, r int8)
}

func NewMotorController(pwmPeriod uint16, open func() (MotorSpeeds, error)) *MotorController {
	return &MotorController{
		pwmPeriod:  pwmPeriod,
		open:       open,
		loopPeriod: 5 * time.Millisecond,
	}
}

// DutyToSpeed scales a PWM duty (out of period) to a motor speed, clamped to 0..127.
func DutyToSpeed(duty, period uint16) int8 {
	if period == 0 {
		return 0
	}
	v := math.Round(float64(duty) * math.MaxInt8 / float64(period))
	if v >= math.MaxInt8 {
		return math.MaxInt8
	}
	return int8(v)
}

func (c *MotorController) set(l, r int8) error {
	c.lock.Lock()
	c.motorL, c.motorR = l, r
	c.lock.Unlock()
	return nil
}

func (c *MotorController) Forward(l, r uint16) error {
	return c.set(DutyToSpeed(l, c.pwmPeriod), DutyToSpeed(r, c.pwmPeriod))
}

// Left spins on the spot: left wheel backwards, right wheel forwards.
func (c *MotorController) Left(l, r uint16) error {
	return c.set(-DutyToSpeed(l, c.pwmPeriod), DutyToSpeed(r, c.pwmPeriod))
}

func (c *MotorController) Right(l, r uint16) error {
	return c.set(DutyToSpeed(l, c.pwmPeriod), -DutyToSpeed(r, c.pwmPeriod))
}

func (c *MotorController) Stop() error {
	return c.set(0, 0)
}

func (c *MotorController) Desired() (l, r int8) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.motorL, c.motorR
}

func (c *MotorController) Loop(ctx context.Context, initDone *sync.WaitGroup) {
	fmt.Println("Motor loop started")
	for {
		c.loopUntilSomethingBadHappens(ctx, initDone)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("===== !!! WARNING !!! MOTOR FAILURE; TRYING TO RECOVER =====")
		initDone = nil
		time.Sleep(100 * time.Millisecond)
	}
}

func (c *MotorController) loopUntilSomethingBadHappens(ctx context.Context, initDone *sync.WaitGroup) {
	defer func() {
		if initDone != nil {
			initDone.Done()
		}
	}()

	motors, err := c.open()
	if err != nil {
		fmt.Println("Failed to open motor controller", err)
		return
	}
	defer func() {
		// Whatever happened, leave the motors stopped.
		_ = motors.SetMotorSpeeds(0, 0)
		_ = motors.Close()
	}()

	if initDone != nil {
		initDone.Done()
		initDone = nil
	}

	ticker := time.NewTicker(c.loopPeriod)
	defer ticker.Stop()

	// Force the first write.
	lastL, lastR, first := int8(0), int8(0), true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		l, r := c.Desired()
		if first || lastL != l || lastR != r {
			err = motors.SetMotorSpeeds(l, r)
			if err != nil {
				fmt.Println("Failed to update motor speeds", err)
				return
			}
			lastL, lastR, first = l, r, false
			if c.onUpdate != nil {
				c.onUpdate(l, r)
			}
		}
	}
}
