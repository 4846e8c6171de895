package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays short wav cues on its own goroutine.  A new cue cuts off the one playing.
type Player struct {
	lock         sync.Mutex
	closed       bool
	soundsToPlay chan string
}

func NewPlayer() *Player {
	p := &Player{soundsToPlay: make(chan string, 4)}
	go p.loop()
	return p
}

// Play queues a cue.  It never blocks; if the queue is full the cue is dropped.
func (p *Player) Play(path string) bool {
	if path == "" {
		return false
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.soundsToPlay <- path:
		return true
	default:
		fmt.Println("Sound queue full, dropping", path)
		return false
	}
}

func (p *Player) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.closed {
		p.closed = true
		close(p.soundsToPlay)
	}
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Sound player crashed:", r)
		}
		for s := range p.soundsToPlay {
			fmt.Println("Unable to play", s)
		}
	}()
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		fmt.Println("Failed to open speaker", err)
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			_ = s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			_ = f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
