package testmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

func New(hw hardware.Interface, duties actuation.Duties) *TestMode {
	return &TestMode{
		hw:     hw,
		mapper: actuation.NewMapper(hw.Motors(), hw.Indicator(), duties),
		step:   2 * time.Second,
	}
}

// TestMode cycles the actuation outputs through each steering state so the wheel directions
// and LED colours can be checked on the bench.
type TestMode struct {
	hw     hardware.Interface
	mapper *actuation.Mapper
	step   time.Duration
	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func (t *TestMode) Name() string {
	return "Test mode"
}

func (m *TestMode) StartupSound() string {
	return "/sounds/testmode.wav"
}

func (t *TestMode) Start(ctx context.Context) {
	t.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, t.cancel = context.WithCancel(ctx)
	go t.loop(loopCtx)
}

func (t *TestMode) Stop() {
	t.cancel()
	t.stopWG.Wait()
}

func (t *TestMode) loop(ctx context.Context) {
	defer t.stopWG.Done()
	defer func() {
		if err := t.mapper.Stop(); err != nil {
			fmt.Println("TestMode: failed to stop:", err)
		}
	}()

	states := []steering.State{steering.Center, steering.Left, steering.Right}
	for i := 0; ctx.Err() == nil; i++ {
		s := states[i%len(states)]
		fmt.Printf("TestMode: %v (%v)\n", s, actuation.ColourFor(s))
		if err := t.mapper.Apply(s); err != nil {
			fmt.Println("TestMode: actuation failed:", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(t.step):
		}
	}
}
