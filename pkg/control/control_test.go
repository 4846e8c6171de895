package control

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

const (
	centered  linesensor.Reading = 0b00011000
	lineLeft  linesensor.Reading = 0b01000000
	lineRight linesensor.Reading = 0b00000010
	allBlack  linesensor.Reading = 0b11111111
)

type fakeMotors struct {
	lock    sync.Mutex
	calls   []string
	colours []actuation.Colour
}

func (m *fakeMotors) add(call string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, call)
	return nil
}

func (m *fakeMotors) Forward(l, r uint16) error { return m.add("forward") }
func (m *fakeMotors) Left(l, r uint16) error    { return m.add("left") }
func (m *fakeMotors) Right(l, r uint16) error   { return m.add("right") }
func (m *fakeMotors) Stop() error               { return m.add("stop") }

func (m *fakeMotors) SetColour(c actuation.Colour) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.colours = append(m.colours, c)
	return nil
}

func (m *fakeMotors) last() (string, actuation.Colour) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.calls) == 0 {
		return "", actuation.Off
	}
	return m.calls[len(m.calls)-1], m.colours[len(m.colours)-1]
}

type fakeEncoders struct {
	snap odometry.Snapshot
	err  error
}

func (e *fakeEncoders) Snapshot() (odometry.Snapshot, error) {
	return e.snap, e.err
}

func (e *fakeEncoders) advance(steps int32) {
	e.snap.Steps[odometry.LeftWheel] += steps
	e.snap.Steps[odometry.RightWheel] += steps
}

type rig struct {
	ctrl     *Controller
	sensor   *linesensor.Dummy
	encoders *fakeEncoders
	motors   *fakeMotors
	reports  []odometry.Status
}

func newRig(config Config) *rig {
	r := &rig{
		sensor:   linesensor.NewDummy(centered),
		encoders: &fakeEncoders{},
		motors:   &fakeMotors{},
	}
	r.ctrl = New(config, Collaborators{
		Sensor:    r.sensor,
		Encoders:  r.encoders,
		Motors:    r.motors,
		Indicator: r.motors,
		Reporter: diagnostics.ReporterFunc(func(s odometry.Status) {
			r.reports = append(r.reports, s)
		}),
	})
	return r
}

// sample runs the sensor task through one full acquisition window.
func (r *rig) sample(reading linesensor.Reading) {
	r.sensor.Set(reading)
	for i := 0; i < steering.Window; i++ {
		r.ctrl.sensor.Tick()
	}
}

func (r *rig) cues() (cues []Cue) {
	for {
		select {
		case c := <-r.ctrl.Cues():
			cues = append(cues, c)
		default:
			return
		}
	}
}

func expectSteering(t *testing.T, r *rig, expected steering.State) {
	t.Helper()
	if s := r.ctrl.State().Steering(); s != expected {
		t.Errorf("steering = %v, expected %v", s, expected)
	}
}

func TestSensorTaskSamplesOncePerWindow(t *testing.T) {
	r := newRig(Config{})
	for i := 0; i < 100; i++ {
		r.ctrl.sensor.Tick()
	}
	if r.sensor.Starts() != 10 {
		t.Errorf("expected 10 acquisitions in 100 ticks, got %d", r.sensor.Starts())
	}
	if r.ctrl.State().Tick() != 100 {
		t.Errorf("tick = %d", r.ctrl.State().Tick())
	}
	reading, pos := r.ctrl.State().Sample()
	if reading != centered || pos != 0 {
		t.Errorf("sample = %v/%d", reading, pos)
	}
}

func TestPowerOnState(t *testing.T) {
	s := NewRobotState()
	if s.Steering() != steering.Center || s.Position() != linesensor.NoLine || s.Intersection() {
		t.Errorf("unexpected power-on state %+v", s.Snapshot())
	}
}

func TestSampleNegativePosition(t *testing.T) {
	s := NewRobotState()
	s.storeSample(lineLeft, -237)
	reading, pos := s.Sample()
	if reading != lineLeft || pos != -237 {
		t.Errorf("round trip gave %v/%d", reading, pos)
	}
}

func TestSteeringDrivesMotors(t *testing.T) {
	r := newRig(Config{})
	for _, tc := range []struct {
		reading linesensor.Reading
		state   steering.State
		call    string
		colour  actuation.Colour
	}{
		{centered, steering.Center, "forward", actuation.Green},
		{lineLeft, steering.Left, "left", actuation.Blue},
		{lineRight, steering.Right, "right", actuation.Yellow},
		{0, steering.Right, "right", actuation.Yellow},
		{centered, steering.Center, "forward", actuation.Green},
	} {
		r.sample(tc.reading)
		expectSteering(t, r, tc.state)
		r.ctrl.control.Tick()
		call, colour := r.motors.last()
		if call != tc.call || colour != tc.colour {
			t.Errorf("%v: motors got %s/%v, expected %s/%v", tc.reading, call, colour, tc.call, tc.colour)
		}
	}
}

type failingSensor struct {
	linesensor.Dummy
}

func (f *failingSensor) End() (linesensor.Reading, error) {
	_, _ = f.Dummy.End()
	return 0, errors.New("bus error")
}

func TestSensorErrorHoldsState(t *testing.T) {
	r := newRig(Config{})
	r.sample(lineLeft)
	expectSteering(t, r, steering.Left)

	r.ctrl.sensor.sensor = &failingSensor{}
	r.sample(centered)
	expectSteering(t, r, steering.Left)
	if pos := r.ctrl.State().Position(); pos != -237 {
		t.Errorf("position changed to %d after a failed read", pos)
	}
}

func TestCenterRangeTunable(t *testing.T) {
	r := newRig(Config{})
	// Channel 2 alone decodes to 142.
	r.sample(0b00000100)
	expectSteering(t, r, steering.Right)

	r.ctrl.config.CenterRange.Set(150)
	r.sample(0b00000100)
	expectSteering(t, r, steering.Center)
}

func TestIntersectionEntry(t *testing.T) {
	r := newRig(Config{Intersections: true})
	r.sample(lineLeft)
	expectSteering(t, r, steering.Left)

	r.sample(allBlack)
	if !r.ctrl.State().Intersection() {
		t.Fatal("all-black did not enter intersection mode")
	}
	expectSteering(t, r, steering.Left)
	if cues := r.cues(); len(cues) != 1 || cues[0] != CueIntersection {
		t.Errorf("unexpected cues %v", cues)
	}

	// Only right corrections while in intersection mode.
	r.sample(centered)
	expectSteering(t, r, steering.Left)
	r.sample(lineRight)
	expectSteering(t, r, steering.Right)
	r.sample(lineLeft)
	expectSteering(t, r, steering.Right)
}

func TestSimpleVariantIgnoresAllBlack(t *testing.T) {
	r := newRig(Config{})
	r.sample(allBlack)
	if r.ctrl.State().Intersection() {
		t.Fatal("simple classifier entered intersection mode")
	}
	expectSteering(t, r, steering.Right)
}

func TestSwitchVariant(t *testing.T) {
	r := newRig(Config{})
	r.ctrl.SetIntersections(true)
	r.sample(allBlack)
	if !r.ctrl.State().Intersection() {
		t.Fatal("switching variant did not enable intersection handling")
	}
}

func smallWindowConfig(budget uint32) Config {
	p := odometry.DefaultParams()
	p.ReportEvery = 2
	p.ThresholdMM = 100
	return Config{
		Intersections: true,
		Odometry:      p,
		IgnoreBudget:  budget,
	}
}

func TestIgnoreWindowResetsDistanceOnce(t *testing.T) {
	r := newRig(smallWindowConfig(10))
	rev := 2 * math.Pi * 35

	r.ctrl.control.Tick() // primes the integrator
	r.encoders.advance(360)
	r.ctrl.control.Tick()
	if len(r.reports) != 1 || math.Abs(r.reports[0].DistanceMM-rev) > 1e-6 {
		t.Fatalf("unexpected reports %+v", r.reports)
	}
	if d := r.ctrl.State().DistanceMM(); d != 0 {
		t.Fatalf("distance not reset on activation: %f", d)
	}
	if cues := r.cues(); len(cues) != 1 || cues[0] != CueIgnoreStart {
		t.Fatalf("unexpected cues %v", cues)
	}

	// Crossing the threshold again inside the window must not reset again.
	for i := 0; i < 2; i++ {
		r.encoders.advance(360)
		r.ctrl.control.Tick()
	}
	if d := r.ctrl.State().DistanceMM(); math.Abs(d-2*rev) > 1e-6 {
		t.Errorf("distance = %f, expected %f", d, 2*rev)
	}
	if cues := r.cues(); len(cues) != 0 {
		t.Errorf("unexpected cues %v", cues)
	}
}

func TestIgnoreWindowExpiryClearsIntersection(t *testing.T) {
	r := newRig(smallWindowConfig(5))
	r.sample(allBlack)
	if !r.ctrl.State().Intersection() {
		t.Fatal("did not enter intersection mode")
	}
	r.cues()

	r.ctrl.control.Tick()
	r.encoders.advance(360)
	r.ctrl.control.Tick() // opens the window; counts as its first tick
	if cues := r.cues(); len(cues) != 1 || cues[0] != CueIgnoreStart {
		t.Fatalf("unexpected cues %v", cues)
	}

	for i := 0; i < 3; i++ {
		r.ctrl.control.Tick()
	}
	if !r.ctrl.State().Intersection() {
		t.Fatal("intersection mode cleared before the window closed")
	}
	r.ctrl.control.Tick()
	if cues := r.cues(); len(cues) == 0 || cues[len(cues)-1] != CueIgnoreEnd {
		t.Fatalf("expected ignore-end cue, got %v", cues)
	}

	// The clear is applied by the sensor task on its next tick.
	if !r.ctrl.State().Intersection() {
		t.Fatal("control task wrote the intersection flag directly")
	}
	r.ctrl.sensor.Tick()
	if r.ctrl.State().Intersection() {
		t.Fatal("intersection mode not cleared after the window closed")
	}
}

func TestHoldStopsMotorsOnce(t *testing.T) {
	r := newRig(Config{})
	r.ctrl.SetHold(true)
	for i := 0; i < 5; i++ {
		r.ctrl.control.Tick()
	}
	if len(r.motors.calls) != 1 || r.motors.calls[0] != "stop" {
		t.Fatalf("expected a single stop, got %v", r.motors.calls)
	}
	r.encoders.advance(360)
	r.ctrl.control.Tick()
	if r.ctrl.State().DistanceMM() == 0 {
		t.Error("odometry stopped while held")
	}

	r.ctrl.SetHold(false)
	r.ctrl.control.Tick()
	if call, _ := r.motors.last(); call != "forward" {
		t.Errorf("motors not driven after release, last call %s", call)
	}
}

func TestEncoderErrorSkipsIntegration(t *testing.T) {
	r := newRig(Config{})
	r.ctrl.control.Tick()
	r.encoders.err = errors.New("spi timeout")
	r.encoders.advance(360)
	r.ctrl.control.Tick()
	if r.ctrl.State().DistanceMM() != 0 {
		t.Error("integrated a failed snapshot")
	}
	r.encoders.err = nil
	r.ctrl.control.Tick()
	if math.Abs(r.ctrl.State().DistanceMM()-2*math.Pi*35) > 1e-6 {
		t.Errorf("distance = %f after recovery", r.ctrl.State().DistanceMM())
	}
}

func TestRun(t *testing.T) {
	r := newRig(Config{})
	r.ctrl.control.reporter = diagnostics.ReporterFunc(func(odometry.Status) {})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.ctrl.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for r.ctrl.State().Tick() < 20 {
		if time.Now().After(deadline) {
			t.Fatal("sensor task not ticking")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if call, colour := r.motors.last(); call != "stop" || colour != actuation.Off {
		t.Errorf("motors left running: %s/%v", call, colour)
	}
}
