package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

// Prints the raw line sensor reading with what each classifier would make of it.
func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Printf("Bad config: %+v\n", err)
		os.Exit(1)
	}

	var sensor linesensor.Sensor
	if os.Getenv(config.EnvDummyHW) != "" {
		sensor = linesensor.NewDummy(0b00011000)
	} else {
		sensor, err = linesensor.NewQTRX(cfg.Hardware.SensorPins, cfg.Hardware.EmitterPins)
		if err != nil {
			fmt.Println("Failed to open sensor ", err)
			os.Exit(1)
		}
	}

	simple := steering.Policy{CenterRange: int32(cfg.CenterRange(false))}
	withT := steering.Policy{CenterRange: int32(cfg.CenterRange(true)), Intersections: true}
	var simpleState, tState steering.State
	var inT bool

	for {
		if err := sensor.Start(); err != nil {
			fmt.Println("Start failed:", err)
			time.Sleep(time.Second)
			continue
		}
		time.Sleep(5 * time.Millisecond)
		reading, err := sensor.End()
		if err != nil {
			fmt.Println("Read failed:", err)
			continue
		}
		pos := linesensor.Decode(reading)
		simpleState, _ = simple.Classify(pos, simpleState, false)
		var enter bool
		tState, enter = withT.Classify(pos, tState, inT)
		if enter {
			inT = true
			fmt.Println("Intersection!")
		}
		fmt.Printf("%v pos=%4d %v=%-6v %v=%-6v\n", reading, pos, simple, simpleState, withT, tState)
		time.Sleep(5 * time.Millisecond)
	}
}
