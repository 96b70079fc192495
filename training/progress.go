package training

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar renders a single-line terminal progress bar for one epoch.
type ProgressBar struct {
	description string
	total       int
	current     int
	startTime   time.Time
	width       int
}

// NewProgressBar creates a progress bar for total steps.
func NewProgressBar(description string, total int) *ProgressBar {
	return &ProgressBar{
		description: description,
		total:       total,
		startTime:   time.Now(),
		width:       40,
	}
}

// Update advances the bar to the given step and redraws it with the supplied
// metric values appended.
func (pb *ProgressBar) Update(current int, metrics map[string]float64) {
	pb.current = current
	pb.render(metrics)
}

// Finish completes the bar and moves to the next line.
func (pb *ProgressBar) Finish() {
	pb.current = pb.total
	pb.render(nil)
	fmt.Println()
}

func (pb *ProgressBar) render(metrics map[string]float64) {
	if pb.total <= 0 {
		return
	}

	progress := float64(pb.current) / float64(pb.total)
	filled := int(progress * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled)

	elapsed := time.Since(pb.startTime)
	rate := float64(pb.current) / elapsed.Seconds()

	line := fmt.Sprintf("\r%s [%s] %d/%d (%.1f steps/s)",
		pb.description, bar, pb.current, pb.total, rate)
	for name, value := range metrics {
		line += fmt.Sprintf(" %s: %.4f", name, value)
	}
	fmt.Print(line)
}
