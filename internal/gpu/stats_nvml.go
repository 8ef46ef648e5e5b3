//go:build nvml

package gpu

import (
	"context"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"sentineld/pkg/types"
)

// Info reports VRAM stats for device 0 via NVML. Any failure degrades to an
// unknown device with zeroed stats, matching the exec-based build.
func Info(ctx context.Context) types.GPUInfo {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return unknownGPU()
	}
	defer nvml.Shutdown()

	dev, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return unknownGPU()
	}
	name, ret := dev.GetName()
	if ret != nvml.SUCCESS {
		name = "unknown"
	}
	mem, ret := dev.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return types.GPUInfo{Name: name}
	}
	const mb = 1024 * 1024
	return types.GPUInfo{
		Name:        name,
		TotalVRAMMB: int(mem.Total / mb),
		FreeVRAMMB:  int(mem.Free / mb),
		UsedVRAMMB:  int(mem.Used / mb),
	}
}

func unknownGPU() types.GPUInfo {
	return types.GPUInfo{Name: "unknown"}
}
