// Package odometry integrates wheel encoder counts into distance and speed.
package odometry

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/chassis"
)

type Wheel int

const (
	LeftWheel Wheel = iota
	RightWheel
	NumWheels
)

type PerWheel[T any] [NumWheels]T

type Direction int8

const (
	Stopped Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Stopped:
		return "stopped"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

// Snapshot is one read of the encoder board.  Steps are cumulative signed counts and wrap at
// 32 bits; Period is the most recent pulse period in tachometer clock ticks.
type Snapshot struct {
	Steps  PerWheel[int32]
	Period PerWheel[uint16]
	Dir    PerWheel[Direction]
}

// Source provides encoder snapshots.
type Source interface {
	Snapshot() (Snapshot, error)
}

type Params struct {
	StepsPerRev   float64
	WheelRadiusMM float64
	TachClockHz   float64

	// ReportEvery is the number of steps between status reports.
	ReportEvery uint32
	// ThresholdMM is the accumulated distance above which a report flags ThresholdCrossed.
	ThresholdMM float64
}

func DefaultParams() Params {
	return Params{
		StepsPerRev:   chassis.StepsPerRev,
		WheelRadiusMM: chassis.WheelRadiusMM,
		TachClockHz:   chassis.TachClockHz,
		ReportEvery:   1000,
		ThresholdMM:   10 * 10 * 2,
	}
}

// Status is the periodic report.
type Status struct {
	DistanceMM    float64
	SpeedMMPerSec float64
	Dir           PerWheel[Direction]
}

// Update is the result of one integration step.
type Update struct {
	IncrementMM float64

	// Report is set once every ReportEvery steps, with Status filled in.
	Report bool
	Status Status
	// ThresholdCrossed is only ever set on a report step.
	ThresholdCrossed bool
}

// Integrator accumulates distance from successive snapshots.  It is not safe for concurrent
// use; it belongs to the control task.
type Integrator struct {
	params Params

	primed    bool
	prevSteps PerWheel[int32]

	distanceMM    float64
	speedMMPerSec float64
	reportCount   uint32
}

func NewIntegrator(params Params) *Integrator {
	return &Integrator{params: params}
}

// Step integrates one snapshot.  The first snapshot only records the starting counts.
func (i *Integrator) Step(s Snapshot) (u Update) {
	var delta PerWheel[int32]
	if i.primed {
		for w := range delta {
			// Wraps modulo 2^32, so a counter rolling over between two reads still gives the
			// right (small) delta.
			delta[w] = s.Steps[w] - i.prevSteps[w]
		}
	}

	avgDelta := mean(delta)
	u.IncrementMM = avgDelta / i.params.StepsPerRev * (2 * math.Pi * i.params.WheelRadiusMM)
	i.distanceMM += u.IncrementMM

	avgPeriod := mean(s.Period)
	if avgPeriod > 0 {
		i.speedMMPerSec = u.IncrementMM * (i.params.TachClockHz / avgPeriod)
	}

	i.prevSteps = s.Steps
	i.primed = true

	i.reportCount++
	if i.reportCount >= i.params.ReportEvery {
		i.reportCount = 0
		u.Report = true
		u.Status = Status{
			DistanceMM:    i.distanceMM,
			SpeedMMPerSec: i.speedMMPerSec,
			Dir:           s.Dir,
		}
		u.ThresholdCrossed = i.distanceMM > i.params.ThresholdMM
	}
	return u
}

// ResetDistance zeroes the accumulated distance.  It is the only way the distance goes back
// to zero.
func (i *Integrator) ResetDistance() {
	i.distanceMM = 0
}

// DeferReportIfImminent restarts the report period if the next step would have produced a
// report.  Returns true if it did.
func (i *Integrator) DeferReportIfImminent() bool {
	if i.reportCount+1 >= i.params.ReportEvery {
		i.reportCount = 0
		return true
	}
	return false
}

func (i *Integrator) DistanceMM() float64 {
	return i.distanceMM
}

func (i *Integrator) SpeedMMPerSec() float64 {
	return i.speedMMPerSec
}

func mean[T constraints.Integer](v PerWheel[T]) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	return sum / float64(len(v))
}
