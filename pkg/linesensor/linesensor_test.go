package linesensor

import "testing"

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		reading  Reading
		expected int32
	}{
		{0x00, NoLine},
		{0xff, AllBlack},
		{0x18, 0},    // Two middle channels.
		{0x08, 47},   // Just right of centre.
		{0x10, -47},  // Just left of centre.
		{0x01, 332},  // Right-most only.
		{0x80, -332}, // Left-most only.
		{0x03, 284},  // (332+237)/2
		{0xc0, -284}, // (-237-332)/2
		{0x0c, 94},   // (142+47)/2
		{0x7e, 0},    // Symmetric wide line.
		{0x0f, 189},  // (332+237+142+47)/4
		{0x81, 0},    // Both edges cancel.
	} {
		if p := Decode(tc.reading); p != tc.expected {
			t.Errorf("Decode(%v) = %d, expected %d", tc.reading, p, tc.expected)
		}
	}
}

func TestDecodeStaysInRange(t *testing.T) {
	for r := 1; r < 0xff; r++ {
		p := Decode(Reading(r))
		if p < -MaxPosition || p > MaxPosition {
			t.Errorf("Decode(%v) = %d, outside +/-%d", Reading(r), p, MaxPosition)
		}
	}
}

func TestDummyRequiresStart(t *testing.T) {
	d := NewDummy(0x18)
	if _, err := d.End(); err != ErrNotStarted {
		t.Fatalf("End before Start returned %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	r, err := d.End()
	if err != nil || r != 0x18 {
		t.Fatalf("End returned %v, %v", r, err)
	}
	if d.Starts() != 1 {
		t.Errorf("expected 1 start, got %d", d.Starts())
	}
}
