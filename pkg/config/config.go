// Package config loads the robot configuration.  Every field has a default, so the YAML file
// only needs to list what differs.
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/ignorewindow"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

const (
	DefaultPath     = "/cfg/linebot.yaml"
	InUsePath       = "/cfg/linebot-in-use.yaml"
	EnvPath         = "LINEBOT_CONFIG"
	EnvDummyHW      = "LINEBOT_DUMMY_HW"
	EnvJoystick     = "JOYSTICK_DEVICE"
	DefaultJoystick = "/dev/input/js0"
)

const (
	VariantSimple       = "a"
	VariantIntersection = "b"
)

type Steering struct {
	// Variant is "a" (plain line following) or "b" (T-junction handling).
	Variant                 string
	CenterRangeSimple       int
	CenterRangeIntersection int
}

type Odometry struct {
	StepsPerRev   float64
	WheelRadiusMM float64
	TachClockHz   float64
	ReportEvery   uint32
	ThresholdMM   float64
}

type Motors struct {
	// Duties are PWM compare values out of PWMPeriod.
	PWMPeriod uint16
	Forward   actuation.DutyPair
	TurnLeft  actuation.DutyPair
	TurnRight actuation.DutyPair
}

type LEDPins struct {
	Red, Green, Blue string
}

type Hardware struct {
	SensorPins        []string
	EmitterPins       []string
	LEDPins           LEDPins
	TachometerSPI     string
	I2CBus            string
	PropellerFirmware string
	Framebuffer       string
	SerialPort        string
	SerialBaud        int
}

type Sounds struct {
	Start        string
	Intersection string
	IgnoreStart  string
	IgnoreEnd    string
	Paused       string
}

type Config struct {
	Steering Steering
	Odometry Odometry
	Motors   Motors

	IgnoreBudgetTicks uint32
	TickPeriodMicros  int

	Hardware Hardware
	Sounds   Sounds
}

func Default() Config {
	nominal := actuation.DutyPair{Left: actuation.NominalDuty, Right: actuation.NominalDuty}
	return Config{
		Steering: Steering{
			Variant:                 VariantIntersection,
			CenterRangeSimple:       int(steering.SimpleCenterRange),
			CenterRangeIntersection: int(steering.IntersectionCenterRange),
		},
		Odometry: Odometry{
			StepsPerRev:   chassis.StepsPerRev,
			WheelRadiusMM: chassis.WheelRadiusMM,
			TachClockHz:   chassis.TachClockHz,
			ReportEvery:   1000,
			ThresholdMM:   10 * 10 * 2,
		},
		Motors: Motors{
			PWMPeriod: 15000,
			Forward:   nominal,
			TurnLeft:  nominal,
			TurnRight: nominal,
		},
		IgnoreBudgetTicks: ignorewindow.DefaultBudget,
		TickPeriodMicros:  1000,
		Hardware: Hardware{
			SensorPins:        []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO16", "GPIO20", "GPIO21"},
			EmitterPins:       []string{"GPIO23", "GPIO24"},
			LEDPins:           LEDPins{Red: "GPIO22", Green: "GPIO27", Blue: "GPIO25"},
			TachometerSPI:     "/dev/spidev0.0",
			I2CBus:            "/dev/i2c-1",
			PropellerFirmware: "/mb3.binary",
			Framebuffer:       "/dev/fb1",
			SerialPort:        "/dev/ttyAMA0",
			SerialBaud:        115200,
		},
		Sounds: Sounds{
			Start:        "/sounds/linebotstart.wav",
			Intersection: "/sounds/intersection.wav",
			IgnoreStart:  "/sounds/ignorestart.wav",
			IgnoreEnd:    "/sounds/ignoreend.wav",
			Paused:       "/sounds/paused.wav",
		},
	}
}

// Path returns the config file to load: $LINEBOT_CONFIG if set, otherwise DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path over the defaults.  A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No config at", path, "; using defaults")
		return c, nil
	}
	if err != nil {
		return c, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrapf(err, "bad config in %s", path)
	}
	return c, nil
}

// WriteInUse writes the config that is actually in use, so it can be checked after a run.
func WriteInUse(c Config, path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0666), "failed to write %s", path)
}

func (c Config) Validate() error {
	switch c.Steering.Variant {
	case VariantSimple, VariantIntersection:
	default:
		return fmt.Errorf("unknown steering variant %q", c.Steering.Variant)
	}
	if len(c.Hardware.SensorPins) != 8 {
		return fmt.Errorf("need 8 sensor pins, got %d", len(c.Hardware.SensorPins))
	}
	if c.Odometry.StepsPerRev <= 0 || c.Odometry.WheelRadiusMM <= 0 {
		return errors.New("wheel geometry must be positive")
	}
	if c.Odometry.ReportEvery == 0 {
		return errors.New("report period must be positive")
	}
	if c.Motors.PWMPeriod == 0 {
		return errors.New("PWM period must be positive")
	}
	if c.TickPeriodMicros <= 0 {
		return errors.New("tick period must be positive")
	}
	return nil
}

func (c Config) Intersections() bool {
	return c.Steering.Variant == VariantIntersection
}

func (c Config) OdometryParams() odometry.Params {
	return odometry.Params{
		StepsPerRev:   c.Odometry.StepsPerRev,
		WheelRadiusMM: c.Odometry.WheelRadiusMM,
		TachClockHz:   c.Odometry.TachClockHz,
		ReportEvery:   c.Odometry.ReportEvery,
		ThresholdMM:   c.Odometry.ThresholdMM,
	}
}

func (c Config) Duties() actuation.Duties {
	return actuation.Duties{
		Forward:   c.Motors.Forward,
		TurnLeft:  c.Motors.TurnLeft,
		TurnRight: c.Motors.TurnRight,
	}
}

// CenterRange returns the configured dead band for a classifier variant.
func (c Config) CenterRange(intersections bool) int {
	if intersections {
		return c.Steering.CenterRangeIntersection
	}
	return c.Steering.CenterRangeSimple
}
