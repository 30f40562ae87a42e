package metrics

// SystemSnapshot is one instantaneous reading of host CPU and RAM usage.
// Immutable once constructed.
type SystemSnapshot struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMUsedMB  int64   `json:"ram_used_mb"`
	RAMTotalMB int64   `json:"ram_total_mb"`
	RAMPercent float64 `json:"ram_percent"`
	Available  bool    `json:"available"`
}

// AcceleratorSnapshot is one instantaneous reading of an accelerator
// device. Immutable once constructed. When no device is present all
// numeric fields are zero and Available is false; the shape never
// changes, so consumers only check the flag.
type AcceleratorSnapshot struct {
	UtilizationPercent int     `json:"utilization_percent"`
	VRAMUsedMB         int64   `json:"vram_used_mb"`
	VRAMTotalMB        int64   `json:"vram_total_mb"`
	VRAMPercent        float64 `json:"vram_percent"`
	TemperatureC       int     `json:"temperature_c"`
	PowerWatts         int     `json:"power_watts"`
	Available          bool    `json:"available"`
}

// Source yields instantaneous metric snapshots. Implementations never
// return errors: unavailability is signaled via Available=false with
// zeroed numeric fields.
type Source interface {
	QuerySystem() SystemSnapshot
	QueryAccelerator(index int) AcceleratorSnapshot
}

// hostSource combines the gopsutil-backed system reader with the
// NVML-backed accelerator reader.
type hostSource struct {
	system *systemReader
	accel  *nvmlReader
}

// NewSource builds the production Source. Missing drivers or hardware
// degrade the affected snapshots to unavailable rather than failing.
func NewSource() Source {
	return &hostSource{
		system: newSystemReader(),
		accel:  newNVMLReader(),
	}
}

func (s *hostSource) QuerySystem() SystemSnapshot {
	return s.system.snapshot()
}

func (s *hostSource) QueryAccelerator(index int) AcceleratorSnapshot {
	return s.accel.snapshot(index)
}

// Close releases the accelerator driver handle, if one was acquired.
func (s *hostSource) Close() error {
	return s.accel.shutdown()
}

// Unavailable returns a Source whose snapshots always report
// Available=false. Used on hosts with no readable metrics and in tests.
func Unavailable() Source {
	return unavailableSource{}
}

type unavailableSource struct{}

func (unavailableSource) QuerySystem() SystemSnapshot {
	return SystemSnapshot{}
}

func (unavailableSource) QueryAccelerator(int) AcceleratorSnapshot {
	return AcceleratorSnapshot{}
}
