// Package control runs the two 1kHz loops of the line follower: the sensor task, which samples
// the reflectance array and decides which way to steer, and the control task, which drives the
// motors, integrates odometry and runs the intersection ignore window.
package control

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/ignorewindow"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/tunable"
)

const DefaultTickPeriod = time.Millisecond

type Config struct {
	// Intersections selects the T-junction classifier.
	Intersections bool
	// CenterRange is shared with whoever tunes it.
	CenterRange *tunable.Tunable

	Odometry     odometry.Params
	IgnoreBudget uint32
	Duties       actuation.Duties

	SensorPeriod  time.Duration
	ControlPeriod time.Duration
}

type Collaborators struct {
	Sensor    linesensor.Sensor
	Encoders  odometry.Source
	Motors    actuation.Motors
	Indicator actuation.Indicator
	Reporter  diagnostics.Reporter
}

type Controller struct {
	config Config
	state  *RobotState

	intersections atomic.Bool
	hold          atomic.Bool

	mapper  *actuation.Mapper
	sensor  *SensorTask
	control *ControlTask

	cues chan Cue
}

func New(config Config, c Collaborators) *Controller {
	if config.SensorPeriod == 0 {
		config.SensorPeriod = DefaultTickPeriod
	}
	if config.ControlPeriod == 0 {
		config.ControlPeriod = DefaultTickPeriod
	}
	if config.IgnoreBudget == 0 {
		config.IgnoreBudget = ignorewindow.DefaultBudget
	}
	if config.Odometry == (odometry.Params{}) {
		config.Odometry = odometry.DefaultParams()
	}
	if config.Duties == (actuation.Duties{}) {
		config.Duties = actuation.DefaultDuties()
	}
	if config.CenterRange == nil {
		config.CenterRange = NewCenterRange(config.Intersections)
	}
	if c.Reporter == nil {
		c.Reporter = diagnostics.ReporterFunc(func(odometry.Status) {})
	}

	requests := make(chan request, 4)
	ctrl := &Controller{
		config: config,
		state:  NewRobotState(),
		mapper: actuation.NewMapper(c.Motors, c.Indicator, config.Duties),
		cues:   make(chan Cue, 16),
	}
	ctrl.intersections.Store(config.Intersections)

	ctrl.sensor = &SensorTask{
		state:         ctrl.state,
		sensor:        c.Sensor,
		intersections: &ctrl.intersections,
		centerRange:   config.CenterRange,
		requests:      requests,
		cues:          ctrl.cues,
		startErrs:     errorLog{what: "Sensor: start failed"},
		endErrs:       errorLog{what: "Sensor: read failed"},
	}
	ctrl.control = &ControlTask{
		state:       ctrl.state,
		mapper:      ctrl.mapper,
		encoders:    c.Encoders,
		odo:         odometry.NewIntegrator(config.Odometry),
		window:      ignorewindow.New(config.IgnoreBudget),
		reporter:    c.Reporter,
		hold:        &ctrl.hold,
		requests:    requests,
		cues:        ctrl.cues,
		motorErrs:   errorLog{what: "Control: motor update failed"},
		encoderErrs: errorLog{what: "Control: encoder read failed"},
		queueErrs:   errorLog{what: "Control: failed to queue request"},
	}
	return ctrl
}

// NewCenterRange returns the center-range tunable with the default for the given classifier.
func NewCenterRange(intersections bool) *tunable.Tunable {
	r := steering.SimpleCenterRange
	if intersections {
		r = steering.IntersectionCenterRange
	}
	return tunable.New("center-range", int(r), 1, int(linesensor.MaxPosition-1))
}

func (c *Controller) State() *RobotState {
	return c.state
}

// Cues returns the channel on which the tasks announce events.  Cues are dropped if nobody is
// listening.
func (c *Controller) Cues() <-chan Cue {
	return c.cues
}

// SetHold stops the motors (true) or lets the steering drive them again (false).  Sensing and
// odometry carry on while held.
func (c *Controller) SetHold(hold bool) {
	c.hold.Store(hold)
}

// SetIntersections switches classifier variant.  It takes effect from the next classification.
func (c *Controller) SetIntersections(enabled bool) {
	c.intersections.Store(enabled)
}

func (c *Controller) Intersections() bool {
	return c.intersections.Load()
}

// Run runs both tasks until the context is cancelled, then stops the motors.
func (c *Controller) Run(ctx context.Context) {
	fmt.Printf("Control: starting; intersections=%v center range=%d\n",
		c.Intersections(), c.config.CenterRange.Get())

	var wg sync.WaitGroup
	wg.Add(2)
	go loop(ctx, &wg, c.config.SensorPeriod, c.sensor.Tick)
	go loop(ctx, &wg, c.config.ControlPeriod, c.control.Tick)
	wg.Wait()

	if err := c.mapper.Stop(); err != nil {
		fmt.Println("Control: failed to stop motors:", err)
	}
	fmt.Println("Control: stopped")
}

func loop(ctx context.Context, wg *sync.WaitGroup, period time.Duration, tick func()) {
	defer wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
