package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

const (
	S       = 128
	BufSize = S * S * 2
)

// Status is what the status page shows.
type Status struct {
	Mode          string
	Steering      string
	Position      int32
	CenterRange   int
	Intersection  bool
	DistanceMM    float64
	SpeedMMPerSec float64
	Paused        bool
}

var (
	lock    sync.Mutex
	current Status
)

func SetStatus(s Status) {
	lock.Lock()
	current = s
	lock.Unlock()
}

func CurrentStatus() Status {
	lock.Lock()
	defer lock.Unlock()
	return current
}

// LoopUpdatingScreen redraws the LCD from the current status until the context is done, then
// blanks it.  A missing framebuffer is not an error; the robot runs without a screen.
func LoopUpdatingScreen(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var buf [BufSize]byte
	for {
		select {
		case <-ctx.Done():
			buf = [BufSize]byte{}
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}

		ToRGB565(Render(CurrentStatus()), buf[:])
		_, err = f.Seek(0, 0)
		if err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
		for i := 0; i < S; i++ {
			_, err = f.Write(buf[i*S*2 : (i+1)*S*2])
			if err != nil {
				fmt.Println("Screen failure: ", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// Render draws the status page.
func Render(s Status) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(s.Mode, 4, 12)
	if s.Paused {
		dc.Push()
		dc.Translate(S-14, 8)
		DrawWarning(dc)
		dc.Pop()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(s.Steering, 4, 28)
	dc.DrawString(fmt.Sprintf("pos %d (+/-%d)", s.Position, s.CenterRange), 4, 42)
	dc.DrawString(fmt.Sprintf("%.0f mm", s.DistanceMM), 4, 100)
	dc.DrawString(fmt.Sprintf("%.0f mm/s", s.SpeedMMPerSec), 4, 114)

	drawPositionBar(dc, s.Position, s.CenterRange)

	if s.Intersection {
		dc.SetRGB(0, 0.6, 1)
		dc.DrawRectangle(4, 72, S-8, 10)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawString("T", S/2-3, 81)
	}
	return dc.Image()
}

const maxPosition = 332

// drawPositionBar draws the sensor track with the dead band shaded and a marker at the line.
func drawPositionBar(dc *gg.Context, pos int32, centerRange int) {
	const y, h, w = 50, 14, S - 8
	scale := func(p float64) float64 {
		return 4 + (p+maxPosition)/(2*maxPosition)*w
	}

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawRectangle(4, y, w, h)
	dc.Fill()

	dc.SetRGB(0, 0.5, 0)
	dc.DrawRectangle(scale(float64(-centerRange)), y, scale(float64(centerRange))-scale(float64(-centerRange)), h)
	dc.Fill()

	if pos < -maxPosition || pos > maxPosition {
		// No line, or all black.
		return
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(scale(float64(pos))-1, y-2, 3, h+4)
	dc.Fill()
}

// ToRGB565 converts a 128x128 image to the LCD's rotated RGB565 layout.
func ToRGB565(img image.Image, buf []byte) {
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}
