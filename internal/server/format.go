package server

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/resmon/internal/monitor"
)

const mbPerGB = 1024

// formatMemorySize renders a megabyte count for display, switching to
// gigabytes at 1024 MB.
func formatMemorySize(sizeMB int64) string {
	if sizeMB >= mbPerGB {
		return fmt.Sprintf("%.1f GB", float64(sizeMB)/mbPerGB)
	}
	return fmt.Sprintf("%d MB", sizeMB)
}

func formatPercentage(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

// renderSnapshot produces the human-readable snapshot view served by
// /snapshot?format=text.
func renderSnapshot(snapshot monitor.CombinedSnapshot) string {
	var b strings.Builder

	b.WriteString("=== Resource Monitor ===\n")

	if snapshot.System.Available {
		fmt.Fprintf(&b, "CPU: %s\n", formatPercentage(snapshot.System.CPUPercent))
		fmt.Fprintf(&b, "RAM: %s / %s (%s)\n",
			formatMemorySize(snapshot.System.RAMUsedMB),
			formatMemorySize(snapshot.System.RAMTotalMB),
			formatPercentage(snapshot.System.RAMPercent))
	} else {
		b.WriteString("System: unavailable\n")
	}

	if snapshot.Accelerator.Available {
		fmt.Fprintf(&b, "GPU: %d%%\n", snapshot.Accelerator.UtilizationPercent)
		fmt.Fprintf(&b, "VRAM: %s / %s (%s)\n",
			formatMemorySize(snapshot.Accelerator.VRAMUsedMB),
			formatMemorySize(snapshot.Accelerator.VRAMTotalMB),
			formatPercentage(snapshot.Accelerator.VRAMPercent))
		fmt.Fprintf(&b, "Temperature: %d°C\n", snapshot.Accelerator.TemperatureC)
		fmt.Fprintf(&b, "Power: %dW\n", snapshot.Accelerator.PowerWatts)
	} else {
		b.WriteString("GPU: unavailable\n")
	}

	if len(snapshot.RecentTasks) > 0 {
		b.WriteString("Recent tasks:\n")
		for _, task := range snapshot.RecentTasks {
			fmt.Fprintf(&b, "  %s (%s): %.1fms, CPU %s, GPU %s\n",
				task.TaskTitle,
				task.TaskType,
				task.DurationMS,
				formatPercentage(task.AvgCPUPercent),
				formatPercentage(task.AvgAccelUtilization))
		}
	}

	return b.String()
}
