package cmd

import (
	"fmt"
	"strings"

	"github.com/soundset/datacap/internal/audio"
)

const meterWidth = 30

// printMeter redraws a one-line level bar in place.
func printMeter(level *audio.LevelReading) {
	if level == nil {
		return
	}
	filled := int(level.Peak * meterWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", meterWidth-filled)
	fmt.Printf("\r[%s] %3.0f%% %-6s", bar, level.Peak*100, level.Band)
}
