//go:build !nvml

package gpu

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"sentineld/pkg/types"
)

// Info reports VRAM stats for the managed device by querying nvidia-smi.
// Build with -tags nvml to use the NVML bindings instead of shelling out.
// Any failure degrades to an unknown device with zeroed stats.
func Info(ctx context.Context) types.GPUInfo {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,memory.total,memory.free,memory.used",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return unknownGPU()
	}
	info, err := parseQueryGPU(string(out))
	if err != nil {
		return unknownGPU()
	}
	return info
}

func unknownGPU() types.GPUInfo {
	return types.GPUInfo{Name: "unknown"}
}

// parseQueryGPU reads the first line of nvidia-smi's
// "name, memory.total, memory.free, memory.used" CSV output.
func parseQueryGPU(out string) (types.GPUInfo, error) {
	line := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return types.GPUInfo{}, fmt.Errorf("short nvidia-smi line: %q", line)
	}
	total, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return types.GPUInfo{}, err
	}
	free, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return types.GPUInfo{}, err
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return types.GPUInfo{}, err
	}
	return types.GPUInfo{
		Name:        strings.TrimSpace(parts[0]),
		TotalVRAMMB: total,
		FreeVRAMMB:  free,
		UsedVRAMMB:  used,
	}, nil
}
