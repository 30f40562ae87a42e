package metrics

import (
	"codeberg.org/mutker/resmon/internal/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// systemReader queries host CPU and RAM usage through gopsutil.
type systemReader struct{}

func newSystemReader() *systemReader {
	// Prime the CPU counters so the first snapshot reflects usage since
	// this call instead of reading zero.
	if _, err := cpu.Percent(0, false); err != nil {
		logger.Debug().Err(err).Msg("Failed to prime CPU counters")
	}

	return &systemReader{}
}

func (r *systemReader) snapshot() SystemSnapshot {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return SystemSnapshot{}
	}

	memory, err := mem.VirtualMemory()
	if err != nil {
		return SystemSnapshot{}
	}

	return SystemSnapshot{
		CPUPercent: percents[0],
		RAMUsedMB:  int64(memory.Used / bytesPerMB),
		RAMTotalMB: int64(memory.Total / bytesPerMB),
		RAMPercent: memory.UsedPercent,
		Available:  true,
	}
}
