package linemode

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/control"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/screen"
	. "github.com/tigerbot-team/tigerbot/linebot/pkg/tunable"
)

// LineMode follows the line with one of the two classifiers.
//
// Joystick:
//
//	R1 press/release  get ready (controller running, motors held) / GO
//	Square            stop
//	Triangle          pause/resume
//	Circle            switch classifier while running
//	D-pad             select/adjust tunables
type LineMode struct {
	hw       hardware.Interface
	cfg      config.Config
	reporter diagnostics.Reporter

	intersections bool

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event

	running        bool
	ctrl           *control.Controller
	cancelSequence context.CancelFunc
	sequenceWG     sync.WaitGroup

	paused int32

	tunables    Tunables
	centerRange *Tunable

	// statusEvery and debugEvery control the screen refresh and console debug rates.
	statusEvery time.Duration
	debugEvery  time.Duration
}

func New(hw hardware.Interface, cfg config.Config, reporter diagnostics.Reporter, intersections bool) *LineMode {
	m := &LineMode{
		hw:             hw,
		cfg:            cfg,
		reporter:       reporter,
		intersections:  intersections,
		joystickEvents: make(chan *joystick.Event),
		statusEvery:    200 * time.Millisecond,
		debugEvery:     time.Second,
	}
	m.centerRange = m.tunables.Create("Center range", cfg.CenterRange(intersections), 1, 331)
	return m
}

func (m *LineMode) Name() string {
	if m.intersections {
		return "LINE B (T)"
	}
	return "LINE A"
}

func (m *LineMode) StartupSound() string {
	if m.intersections {
		return "/sounds/linemode-b.wav"
	}
	return "/sounds/linemode-a.wav"
}

func (m *LineMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *LineMode) Stop() {
	m.cancel()
	m.stopWG.Wait()

	for _, t := range m.tunables.All {
		fmt.Println("Tunable:", t.Name, "=", t.Get())
	}
}

func (m *LineMode) OnJoystickEvent(event *joystick.Event) {
	m.joystickEvents <- event
}

func (m *LineMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer m.stopSequence()

	var startTime time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.joystickEvents:
			switch event.Type {
			case joystick.EventTypeButton:
				if event.Value == 1 {
					switch event.Number {
					case joystick.ButtonR1:
						fmt.Println("Getting ready!")
						m.startSequence()
					case joystick.ButtonSquare:
						m.stopSequence()
						fmt.Println("Run time:", time.Since(startTime))
					case joystick.ButtonTriangle:
						m.pauseOrResumeSequence()
					case joystick.ButtonCircle:
						m.switchClassifier()
					}
				} else {
					switch event.Number {
					case joystick.ButtonR1:
						if m.running && atomic.LoadInt32(&m.paused) == 0 {
							fmt.Println("GO!")
							startTime = time.Now()
							m.ctrl.SetHold(false)
						}
					}
				}
			case joystick.EventTypeAxis:
				switch event.Number {
				case joystick.AxisDPadX:
					if event.Value > 0 {
						// Right
						m.tunables.SelectNext()
					} else if event.Value < 0 {
						// Left
						m.tunables.SelectPrev()
					}
				case joystick.AxisDPadY:
					if event.Value < 0 {
						// Up
						m.tunables.Current().Add(1)
					} else if event.Value > 0 {
						// Down
						m.tunables.Current().Add(-1)
					}
				}
			}
		}
	}
}

func (m *LineMode) startSequence() {
	if m.running {
		fmt.Println("Already running")
		return
	}

	fmt.Println("Starting sequence...")
	m.running = true
	atomic.StoreInt32(&m.paused, 0)

	m.ctrl = control.New(control.Config{
		Intersections: m.intersections,
		CenterRange:   m.centerRange,
		Odometry:      m.cfg.OdometryParams(),
		IgnoreBudget:  m.cfg.IgnoreBudgetTicks,
		Duties:        m.cfg.Duties(),
		SensorPeriod:  time.Duration(m.cfg.TickPeriodMicros) * time.Microsecond,
		ControlPeriod: time.Duration(m.cfg.TickPeriodMicros) * time.Microsecond,
	}, control.Collaborators{
		Sensor:    m.hw.LineSensor(),
		Encoders:  m.hw.Encoders(),
		Motors:    m.hw.Motors(),
		Indicator: m.hw.Indicator(),
		Reporter:  m.reporter,
	})
	// Hold until R1 is released.
	m.ctrl.SetHold(true)

	seqCtx, cancel := context.WithCancel(context.Background())
	m.cancelSequence = cancel
	m.sequenceWG.Add(2)
	go func() {
		defer m.sequenceWG.Done()
		m.ctrl.Run(seqCtx)
	}()
	go m.watchSequence(seqCtx, m.ctrl)
}

// watchSequence turns controller cues into sounds and keeps the screen and console up to date.
func (m *LineMode) watchSequence(ctx context.Context, ctrl *control.Controller) {
	defer m.sequenceWG.Done()
	defer fmt.Println("Exiting sequence loop")

	m.hw.PlaySound(m.cfg.Sounds.Start)

	statusTicker := time.NewTicker(m.statusEvery)
	defer statusTicker.Stop()
	lastDebug := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case cue := <-ctrl.Cues():
			fmt.Println("Cue:", cue)
			switch cue {
			case control.CueIntersection:
				m.hw.PlaySound(m.cfg.Sounds.Intersection)
			case control.CueIgnoreStart:
				m.hw.PlaySound(m.cfg.Sounds.IgnoreStart)
			case control.CueIgnoreEnd:
				m.hw.PlaySound(m.cfg.Sounds.IgnoreEnd)
			}
		case <-statusTicker.C:
			s := ctrl.State().Snapshot()
			screen.SetStatus(m.status(s, ctrl))
			if time.Since(lastDebug) >= m.debugEvery {
				fmt.Printf("data: %d (%v) flag: %v steering: %v\n",
					s.Position, s.Reading, s.Intersection, s.Steering)
				lastDebug = time.Now()
			}
		}
	}
}

func (m *LineMode) status(s control.Snapshot, ctrl *control.Controller) screen.Status {
	name := "LINE A"
	if ctrl.Intersections() {
		name = "LINE B (T)"
	}
	return screen.Status{
		Mode:          name,
		Steering:      s.Steering.String(),
		Position:      s.Position,
		CenterRange:   m.centerRange.Get(),
		Intersection:  s.Intersection,
		DistanceMM:    s.DistanceMM,
		SpeedMMPerSec: s.SpeedMMPerSec,
		Paused:        atomic.LoadInt32(&m.paused) == 1,
	}
}

func (m *LineMode) stopSequence() {
	if !m.running {
		fmt.Println("Not running")
		return
	}
	fmt.Println("Stopping sequence...")

	m.cancelSequence()
	m.cancelSequence = nil
	m.sequenceWG.Wait()
	m.running = false
	m.ctrl = nil
	atomic.StoreInt32(&m.paused, 0)

	// The controller stops the motors when it exits; make sure of it.
	_ = m.hw.Motors().Stop()

	fmt.Println("Stopped sequence...")
}

func (m *LineMode) pauseOrResumeSequence() {
	if !m.running {
		fmt.Println("Not running")
		return
	}
	if atomic.LoadInt32(&m.paused) == 1 {
		fmt.Println("Resuming sequence...")
		atomic.StoreInt32(&m.paused, 0)
		m.ctrl.SetHold(false)
	} else {
		fmt.Println("Pausing sequence...")
		atomic.StoreInt32(&m.paused, 1)
		m.ctrl.SetHold(true)
		m.hw.PlaySound(m.cfg.Sounds.Paused)
	}
}

func (m *LineMode) switchClassifier() {
	if !m.running {
		fmt.Println("Not running")
		return
	}
	enabled := !m.ctrl.Intersections()
	m.ctrl.SetIntersections(enabled)
	m.centerRange.Set(m.cfg.CenterRange(enabled))
	fmt.Println("Intersection handling:", enabled)
}
