package chassis

import "math"

const (
	WheelRadiusMM float64 = 35
	WheelCircumMM         = 2 * math.Pi * WheelRadiusMM

	// Encoder steps per wheel revolution.
	StepsPerRev = 360

	// Wheel base, for reference; not used by the odometry (no heading estimate).
	WheelBaseMM = 140

	// Tachometer period counts are in ticks of the encoder board's 48MHz timer.
	TachClockHz = 48e6
)
