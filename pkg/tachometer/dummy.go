package tachometer

import (
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

// Dummy simulates the encoder board: wheels turn at whatever rate was last set, and each
// snapshot goes through the same frame encoding as the real board.
type Dummy struct {
	lock sync.Mutex

	rates odometry.PerWheel[float64] // steps/s, signed
	steps odometry.PerWheel[float64]
	last  time.Time
	now   func() time.Time
}

var _ odometry.Source = (*Dummy)(nil)

func NewDummy() *Dummy {
	return &Dummy{now: time.Now}
}

// SetRates sets the wheel speeds in steps per second.
func (d *Dummy) SetRates(left, right float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.advance()
	d.rates = odometry.PerWheel[float64]{left, right}
}

func (d *Dummy) advance() {
	now := d.now()
	if !d.last.IsZero() {
		dt := now.Sub(d.last).Seconds()
		for w := range d.steps {
			d.steps[w] += d.rates[w] * dt
		}
	}
	d.last = now
}

func (d *Dummy) Snapshot() (odometry.Snapshot, error) {
	d.lock.Lock()
	d.advance()
	var s odometry.Snapshot
	for w := range d.steps {
		// Go through int64 so that long runs wrap the way the board's counters do.
		s.Steps[w] = int32(int64(math.Round(d.steps[w])))
		rate := math.Abs(d.rates[w])
		switch {
		case d.rates[w] > 0:
			s.Dir[w] = odometry.Forward
		case d.rates[w] < 0:
			s.Dir[w] = odometry.Reverse
		}
		if rate > 0 {
			s.Period[w] = uint16(math.Min(chassis.TachClockHz/rate, math.MaxUint16))
		}
	}
	d.lock.Unlock()
	return Decode(Encode(s))
}
