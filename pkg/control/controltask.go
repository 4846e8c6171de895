package control

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/ignorewindow"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

var errRequestQueueFull = errors.New("request queue full")

// ControlTask drives the motors from the steering state, integrates odometry and runs the
// ignore window.  Tick must be called from a single goroutine.
type ControlTask struct {
	state    *RobotState
	mapper   *actuation.Mapper
	encoders odometry.Source
	odo      *odometry.Integrator
	window   *ignorewindow.Window
	reporter diagnostics.Reporter

	hold    *atomic.Bool
	stopped bool

	requests chan<- request
	cues     chan<- Cue

	motorErrs   errorLog
	encoderErrs errorLog
	queueErrs   errorLog
}

// Tick runs one 1ms step.
func (t *ControlTask) Tick() {
	t.actuate()

	snap, err := t.encoders.Snapshot()
	if err != nil {
		t.encoderErrs.log(err)
	} else {
		t.integrate(snap)
	}

	if t.window.Tick() {
		t.odo.DeferReportIfImminent()
		// Intersection mode has no exit of its own; the end of the ignore window is what
		// returns the classifier to normal banding.
		select {
		case t.requests <- reqClearIntersection:
		default:
			t.queueErrs.log(errRequestQueueFull)
		}
		fmt.Println("Control: ignore window closed")
		sendCue(t.cues, CueIgnoreEnd)
	}
}

func (t *ControlTask) actuate() {
	if t.hold.Load() {
		if !t.stopped {
			if err := t.mapper.Stop(); err != nil {
				t.motorErrs.log(err)
			}
			t.stopped = true
		}
		return
	}
	t.stopped = false
	if err := t.mapper.Apply(t.state.Steering()); err != nil {
		t.motorErrs.log(err)
	}
}

func (t *ControlTask) integrate(snap odometry.Snapshot) {
	u := t.odo.Step(snap)
	if u.Report {
		t.reporter.Report(u.Status)
		if u.ThresholdCrossed && t.window.Activate() {
			t.odo.ResetDistance()
			fmt.Printf("Control: ignore window opened at %.2f mm\n", u.Status.DistanceMM)
			sendCue(t.cues, CueIgnoreStart)
		}
	}
	t.state.storeOdometry(t.odo.DistanceMM(), t.odo.SpeedMMPerSec())
}
