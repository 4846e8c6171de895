package hardware

import (
	"context"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

type Interface interface {
	// Start kicks off the background loops (motor I2C loop, screen).  Returns once the motor
	// controller is up.
	Start(ctx context.Context)

	LineSensor() linesensor.Sensor
	Encoders() odometry.Source
	Motors() actuation.Motors
	Indicator() actuation.Indicator

	PlaySound(path string)

	// Shutdown stops the motors and releases the devices.
	Shutdown()
}

// MotorSpeeds is the low-level motor controller: signed speeds, -127..127.
type MotorSpeeds interface {
	SetMotorSpeeds(left, right int8) error
	Close() error
}
