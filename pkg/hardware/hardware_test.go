package hardware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

type fakeMotors struct {
	lock   sync.Mutex
	writes [][2]int8
	closed bool
	failAt int
}

func (f *fakeMotors) SetMotorSpeeds(l, r int8) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.writes = append(f.writes, [2]int8{l, r})
	if f.failAt > 0 && len(f.writes) == f.failAt {
		return errors.New("i2c nack")
	}
	return nil
}

func (f *fakeMotors) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func (f *fakeMotors) last() ([2]int8, int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.writes) == 0 {
		return [2]int8{}, 0
	}
	return f.writes[len(f.writes)-1], len(f.writes)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDutyToSpeed(t *testing.T) {
	for _, tc := range []struct {
		duty, period uint16
		expected     int8
	}{
		{0, 15000, 0},
		{2500, 15000, 21},
		{7500, 15000, 64},
		{15000, 15000, 127},
		{20000, 15000, 127},
		{100, 0, 0},
	} {
		if s := DutyToSpeed(tc.duty, tc.period); s != tc.expected {
			t.Errorf("DutyToSpeed(%d, %d) = %d, expected %d", tc.duty, tc.period, s, tc.expected)
		}
	}
}

func TestManoeuvreDirections(t *testing.T) {
	c := NewMotorController(15000, nil)
	expect := func(what string, l, r int8) {
		t.Helper()
		dl, dr := c.Desired()
		if dl != l || dr != r {
			t.Errorf("%s: desired %d,%d; expected %d,%d", what, dl, dr, l, r)
		}
	}
	_ = c.Forward(2500, 7500)
	expect("forward", 21, 64)
	_ = c.Left(2500, 2500)
	expect("left", -21, 21)
	_ = c.Right(2500, 2500)
	expect("right", 21, -21)
	_ = c.Stop()
	expect("stop", 0, 0)
}

func TestLoopSendsChangesOnly(t *testing.T) {
	fm := &fakeMotors{}
	c := NewMotorController(15000, func() (MotorSpeeds, error) { return fm, nil })
	c.loopPeriod = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var initDone sync.WaitGroup
	initDone.Add(1)
	done := make(chan struct{})
	go func() {
		c.Loop(ctx, &initDone)
		close(done)
	}()
	initDone.Wait()

	waitFor(t, "initial write", func() bool { _, n := fm.last(); return n == 1 })
	_ = c.Forward(2500, 2500)
	waitFor(t, "forward", func() bool { w, _ := fm.last(); return w == [2]int8{21, 21} })
	time.Sleep(20 * time.Millisecond)
	if _, n := fm.last(); n != 2 {
		t.Errorf("expected 2 writes for 2 distinct commands, got %d", n)
	}

	cancel()
	<-done
	if w, _ := fm.last(); w != [2]int8{0, 0} || !fm.closed {
		t.Errorf("loop exit left motors at %v (closed=%v)", w, fm.closed)
	}
}

func TestLoopRecoversFromFailure(t *testing.T) {
	var lock sync.Mutex
	opens := 0
	fm := &fakeMotors{failAt: 2}
	c := NewMotorController(15000, func() (MotorSpeeds, error) {
		lock.Lock()
		defer lock.Unlock()
		opens++
		return fm, nil
	})
	c.loopPeriod = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var initDone sync.WaitGroup
	initDone.Add(1)
	go c.Loop(ctx, &initDone)
	initDone.Wait()

	waitFor(t, "initial write", func() bool { _, n := fm.last(); return n == 1 })
	_ = c.Forward(2500, 2500)
	waitFor(t, "reopen", func() bool {
		lock.Lock()
		defer lock.Unlock()
		return opens >= 2
	})
	waitFor(t, "forward after recovery", func() bool { w, _ := fm.last(); return w == [2]int8{21, 21} })
}

func TestDummyEncodersFollowMotors(t *testing.T) {
	d := NewDummy(15000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Shutdown()

	first, err := d.Encoders().Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	_ = d.Motors().Forward(15000, 15000)
	waitFor(t, "wheels to turn", func() bool {
		s, _ := d.Encoders().Snapshot()
		return s.Steps[odometry.LeftWheel] > first.Steps[odometry.LeftWheel]+10
	})
	s, _ := d.Encoders().Snapshot()
	if s.Dir[odometry.RightWheel] != odometry.Forward {
		t.Errorf("right wheel direction %v", s.Dir[odometry.RightWheel])
	}
}
