package control

import (
	"sync/atomic"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/tunable"
)

// SensorTask samples the line sensor and classifies the position.  Tick must be called from a
// single goroutine.
type SensorTask struct {
	state  *RobotState
	sensor linesensor.Sensor

	intersections *atomic.Bool
	centerRange   *tunable.Tunable

	requests <-chan request
	cues     chan<- Cue

	acquiring bool
	startErrs errorLog
	endErrs   errorLog
}

// Tick runs one 1ms step: apply any queued requests, advance the tick counter, then start or
// finish an acquisition depending on the phase.
func (t *SensorTask) Tick() {
	t.drainRequests()

	tick := t.state.tick.Add(1)
	switch steering.PhaseOf(tick) {
	case steering.PhaseStart:
		if err := t.sensor.Start(); err != nil {
			t.startErrs.log(err)
			t.acquiring = false
			return
		}
		t.acquiring = true
	case steering.PhaseFinish:
		if !t.acquiring {
			return
		}
		t.acquiring = false
		reading, err := t.sensor.End()
		if err != nil {
			// Keep the previous sample and state.
			t.endErrs.log(err)
			return
		}
		pos := linesensor.Decode(reading)
		t.state.storeSample(reading, pos)
		t.classify(pos)
	}
}

func (t *SensorTask) policy() steering.Policy {
	r := t.centerRange.Get32()
	if r < 1 {
		r = 1
	} else if r >= linesensor.MaxPosition {
		r = linesensor.MaxPosition - 1
	}
	return steering.Policy{
		CenterRange:   r,
		Intersections: t.intersections.Load(),
	}
}

func (t *SensorTask) classify(pos int32) {
	next, enter := t.policy().Classify(pos, t.state.Steering(), t.state.Intersection())
	if enter {
		t.state.intersection.Store(true)
		sendCue(t.cues, CueIntersection)
	}
	t.state.steering.Store(int32(next))
}

func (t *SensorTask) drainRequests() {
	for {
		select {
		case req := <-t.requests:
			switch req {
			case reqClearIntersection:
				t.state.intersection.Store(false)
			}
		default:
			return
		}
	}
}
