package pausemode

import (
	"context"
	"fmt"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
)

// PauseMode just keeps the robot still.
type PauseMode struct {
	Motors    actuation.Motors
	Indicator actuation.Indicator
}

func (t *PauseMode) Name() string {
	return "Pause mode"
}

func (t *PauseMode) StartupSound() string {
	return "/sounds/pausemode.wav"
}

func (t *PauseMode) Start(ctx context.Context) {
	if err := t.Motors.Stop(); err != nil {
		fmt.Println("Pause mode: failed to stop motors:", err)
	}
	if t.Indicator != nil {
		_ = t.Indicator.SetColour(actuation.Off)
	}
}

func (t *PauseMode) Stop() {
}
