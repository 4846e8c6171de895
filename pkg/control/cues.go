package control

import "fmt"

// Cue is an event the tasks announce to whoever is driving the robot (sounds, the screen).
type Cue int

const (
	CueIntersection Cue = iota
	CueIgnoreStart
	CueIgnoreEnd
)

func (c Cue) String() string {
	switch c {
	case CueIntersection:
		return "intersection"
	case CueIgnoreStart:
		return "ignore-start"
	case CueIgnoreEnd:
		return "ignore-end"
	default:
		return fmt.Sprintf("Cue(%d)", int(c))
	}
}

type request int

const (
	reqClearIntersection request = iota
)

// sendCue never blocks; the tick must not wait on a slow listener.
func sendCue(cues chan<- Cue, c Cue) {
	select {
	case cues <- c:
	default:
	}
}

// errorLog rate-limits a repeating error from a 1kHz loop.
type errorLog struct {
	what  string
	count int
}

func (e *errorLog) log(err error) {
	e.count++
	if e.count == 1 || e.count%1000 == 0 {
		fmt.Printf("%s: %v (%d errors)\n", e.what, err, e.count)
	}
}
