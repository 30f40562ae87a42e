package metrics

import (
	"sync"

	"codeberg.org/mutker/resmon/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	bytesPerMB        = 1024 * 1024
	milliWattsToWatts = 1000
)

// nvmlReader queries accelerator metrics through NVML. Device handles
// are cached per index after the first successful lookup.
type nvmlReader struct {
	mu          sync.Mutex
	initialized bool
	devices     map[int]nvml.Device
}

func newNVMLReader() *nvmlReader {
	r := &nvmlReader{devices: make(map[int]nvml.Device)}

	if ret := nvml.Init(); !IsNVMLSuccess(ret) {
		logger.Warn().Msgf("Accelerator monitoring unavailable: %v", nvml.ErrorString(ret))
		return r
	}

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) || count == 0 {
		logger.Warn().Msg("Accelerator monitoring unavailable: no devices found")
		if err := nvml.Shutdown(); !IsNVMLSuccess(err) {
			logger.Debug().Msgf("NVML shutdown failed: %v", nvml.ErrorString(err))
		}
		return r
	}

	r.initialized = true

	if device, ret := nvml.DeviceGetHandleByIndex(0); IsNVMLSuccess(ret) {
		if name, ret := device.GetName(); IsNVMLSuccess(ret) {
			logger.Info().Msgf("Detected accelerator: %v", name)
		}
		r.devices[0] = device
	}

	return r
}

func (r *nvmlReader) device(index int) (nvml.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if device, ok := r.devices[index]; ok {
		return device, true
	}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if !IsNVMLSuccess(ret) {
		return nil, false
	}
	r.devices[index] = device

	return device, true
}

// snapshot reads utilization, memory, temperature and power from the
// device at index. Individual metric failures zero that field only; a
// missing device degrades the whole snapshot to unavailable.
func (r *nvmlReader) snapshot(index int) AcceleratorSnapshot {
	if !r.initialized {
		return AcceleratorSnapshot{}
	}

	device, ok := r.device(index)
	if !ok {
		return AcceleratorSnapshot{}
	}

	snapshot := AcceleratorSnapshot{Available: true}

	if util, ret := device.GetUtilizationRates(); IsNVMLSuccess(ret) {
		snapshot.UtilizationPercent = int(util.Gpu)
	}

	if mem, ret := device.GetMemoryInfo(); IsNVMLSuccess(ret) {
		snapshot.VRAMUsedMB = int64(mem.Used / bytesPerMB)
		snapshot.VRAMTotalMB = int64(mem.Total / bytesPerMB)
		if mem.Total > 0 {
			snapshot.VRAMPercent = float64(mem.Used) / float64(mem.Total) * 100
		}
	}

	if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); IsNVMLSuccess(ret) {
		snapshot.TemperatureC = int(temp)
	}

	if power, ret := device.GetPowerUsage(); IsNVMLSuccess(ret) {
		snapshot.PowerWatts = int(power / milliWattsToWatts)
	}

	return snapshot
}

func (r *nvmlReader) shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	r.initialized = false

	if ret := nvml.Shutdown(); !IsNVMLSuccess(ret) {
		return newNVMLError(ret)
	}

	return nil
}
