package actuation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

type recorder struct {
	calls   []string
	colours []Colour
	failOn  string
}

func (r *recorder) record(name string, l, h uint16) error {
	call := fmt.Sprintf("%s(%d,%d)", name, l, h)
	r.calls = append(r.calls, call)
	if r.failOn == name {
		return errors.New("motor failure")
	}
	return nil
}

func (r *recorder) Forward(l, h uint16) error { return r.record("forward", l, h) }
func (r *recorder) Left(l, h uint16) error    { return r.record("left", l, h) }
func (r *recorder) Right(l, h uint16) error   { return r.record("right", l, h) }
func (r *recorder) Stop() error               { return r.record("stop", 0, 0) }

func (r *recorder) SetColour(c Colour) error {
	r.colours = append(r.colours, c)
	if r.failOn == "indicator" {
		return errors.New("indicator failure")
	}
	return nil
}

func TestApply(t *testing.T) {
	for _, tc := range []struct {
		state  steering.State
		call   string
		colour Colour
	}{
		{steering.Center, "forward(2500,2500)", Green},
		{steering.Left, "left(2500,2500)", Blue},
		{steering.Right, "right(2500,2500)", Yellow},
	} {
		r := &recorder{}
		m := NewMapper(r, r, DefaultDuties())
		if err := m.Apply(tc.state); err != nil {
			t.Errorf("%v: unexpected error %v", tc.state, err)
		}
		if len(r.calls) != 1 || r.calls[0] != tc.call {
			t.Errorf("%v: expected %s, got %v", tc.state, tc.call, r.calls)
		}
		if len(r.colours) != 1 || r.colours[0] != tc.colour {
			t.Errorf("%v: expected %v, got %v", tc.state, tc.colour, r.colours)
		}
	}
}

func TestApplyUsesConfiguredDuties(t *testing.T) {
	r := &recorder{}
	d := DefaultDuties()
	d.TurnLeft = DutyPair{1500, 3500}
	m := NewMapper(r, r, d)
	_ = m.Apply(steering.Left)
	if r.calls[0] != "left(1500,3500)" {
		t.Errorf("unexpected call %v", r.calls)
	}
}

func TestApplyIsStateless(t *testing.T) {
	r := &recorder{}
	m := NewMapper(r, r, DefaultDuties())
	_ = m.Apply(steering.Center)
	_ = m.Apply(steering.Center)
	if len(r.calls) != 2 || r.calls[0] != r.calls[1] {
		t.Errorf("repeated state should repeat the command, got %v", r.calls)
	}
}

func TestIndicatorFailureStillDrives(t *testing.T) {
	r := &recorder{failOn: "indicator"}
	m := NewMapper(r, r, DefaultDuties())
	if err := m.Apply(steering.Right); err == nil {
		t.Error("expected indicator error to be returned")
	}
	if len(r.calls) != 1 {
		t.Errorf("motors not driven: %v", r.calls)
	}
}

func TestInvalidState(t *testing.T) {
	r := &recorder{}
	m := NewMapper(r, r, DefaultDuties())
	if err := m.Apply(steering.State(7)); err == nil {
		t.Error("expected error for invalid state")
	}
	if len(r.calls) != 0 || len(r.colours) != 0 {
		t.Errorf("invalid state reached collaborators: %v %v", r.calls, r.colours)
	}
}

func TestStop(t *testing.T) {
	r := &recorder{}
	m := NewMapper(r, r, DefaultDuties())
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if r.calls[0] != "stop(0,0)" || r.colours[0] != Off {
		t.Errorf("unexpected stop: %v %v", r.calls, r.colours)
	}
}
