// Package steering turns line positions into steering decisions.
package steering

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
)

// State is the steering decision consumed by the actuation side.
type State int32

const (
	Center State = iota
	Left
	Right
)

func (s State) String() string {
	switch s {
	case Center:
		return "CENTER"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func (s State) Valid() bool {
	return s == Center || s == Left || s == Right
}

const (
	// SimpleCenterRange is the dead band half-width used by the plain line follower.
	SimpleCenterRange int32 = 47
	// IntersectionCenterRange is the default dead band when T junctions are handled.
	IntersectionCenterRange int32 = 100
)

// Policy parameterizes the classifier.  With Intersections unset it is the plain line
// follower; with it set, an all-black reading switches to intersection mode, in which only
// right-hand corrections are made.
type Policy struct {
	CenterRange   int32
	Intersections bool
}

var (
	Simple       = Policy{CenterRange: SimpleCenterRange}
	Intersection = Policy{CenterRange: IntersectionCenterRange, Intersections: true}
)

func (p Policy) String() string {
	if p.Intersections {
		return fmt.Sprintf("intersection(R=%d)", p.CenterRange)
	}
	return fmt.Sprintf("simple(R=%d)", p.CenterRange)
}

// Classify maps a position to the next steering state.  prev is the current state and
// intersection reports whether intersection mode is active.  enter is true when the position
// should switch intersection mode on; in that case next == prev.
//
// Classify never leaves intersection mode.
func (p Policy) Classify(pos int32, prev State, intersection bool) (next State, enter bool) {
	r := p.CenterRange
	centered := pos > -r && pos < r
	rightBand := pos >= r && pos < linesensor.MaxPosition
	leftBand := pos <= -r && pos > -linesensor.MaxPosition

	if p.Intersections && intersection {
		next = prev
		if rightBand {
			next = Right
			if centered {
				next = Center
			}
		}
		return next, false
	}

	switch {
	case centered:
		return Center, false
	case p.Intersections && pos == linesensor.AllBlack:
		return prev, true
	case rightBand:
		next = Right
		// Re-check of the dead band; keep it.
		if centered {
			next = Center
		}
		return next, false
	case leftBand:
		next = Left
		if centered {
			next = Center
		}
		return next, false
	default:
		// Dead end or no usable reading: keep turning right until the line comes back.
		return Right, false
	}
}
