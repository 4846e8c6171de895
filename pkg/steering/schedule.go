package steering

// Phase is what the sensor task does on a given tick.
type Phase int

const (
	PhaseIdle Phase = iota
	// PhaseStart begins an acquisition.
	PhaseStart
	// PhaseFinish ends the acquisition started on the previous tick and classifies it.
	PhaseFinish
)

// Window is the number of ticks per acquisition (100Hz inside the 1kHz tick).
const Window = 10

// PhaseOf returns the phase for a tick count.  Acquisition starts on ticks 1, 11, 21... and is
// consumed one tick later, which gives the array its 1ms settle time.
//
// The tick counter is a uint32 and wraps after ~49.7 days at 1kHz.  2^32 is not a multiple of
// 10, so the window that spans the wrap is 6 ticks long (…, 5, 0, 1, 2, …); the start and
// finish ticks still come in order, one tick apart.
func PhaseOf(tick uint32) Phase {
	switch tick % Window {
	case 1:
		return PhaseStart
	case 2:
		return PhaseFinish
	default:
		return PhaseIdle
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseFinish:
		return "finish"
	default:
		return "idle"
	}
}
