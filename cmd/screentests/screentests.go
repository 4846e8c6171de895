package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/config"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/screen"
)

// Type a position (or "nl"/"ab" for no line/all black) to see how the status page draws it.
func main() {
	ctx := context.Background()

	go screen.LoopUpdatingScreen(ctx, config.Default().Hardware.Framebuffer)

	status := screen.Status{
		Mode:        "SCREEN TEST",
		Steering:    "center",
		CenterRange: config.Default().Steering.CenterRangeSimple,
	}
	screen.SetStatus(status)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		switch line = strings.TrimSpace(line); line {
		case "nl":
			status.Position = linesensor.NoLine
		case "ab":
			status.Position = linesensor.AllBlack
			status.Intersection = true
		case "p":
			status.Paused = !status.Paused
		default:
			pos, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("Bad position:", err)
				continue
			}
			status.Position = int32(pos)
		}
		screen.SetStatus(status)
	}
}
