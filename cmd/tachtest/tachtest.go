package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/diagnostics"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/tachometer"
)

// Reads the encoder board at 1kHz and prints the integrated distance.  Push the robot along
// by hand to check the calibration.
func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Printf("Bad config: %+v\n", err)
		os.Exit(1)
	}

	var tach odometry.Source
	if os.Getenv(config.EnvDummyHW) != "" {
		d := tachometer.NewDummy()
		d.SetRates(300, 300)
		tach = d
	} else {
		tach, err = tachometer.New(cfg.Hardware.TachometerSPI)
		if err != nil {
			fmt.Println("Failed to open tachometer ", err)
			os.Exit(1)
		}
	}

	out := &diagnostics.WriterReporter{W: os.Stdout}
	odo := odometry.NewIntegrator(cfg.OdometryParams())
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		snap, err := tach.Snapshot()
		if err != nil {
			fmt.Println("Snapshot failed:", err)
			continue
		}
		if u := odo.Step(snap); u.Report {
			fmt.Printf("Steps %v Period %v\n", snap.Steps, snap.Period)
			out.Report(u.Status)
		}
	}
}
