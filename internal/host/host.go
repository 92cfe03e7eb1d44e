// Package host reports a best-effort summary of the machine the gateway runs
// on. The front end shows it next to the Ollama version so users can tell at
// a glance whether the local daemon has SIMD acceleration available.
package host

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// Info describes the host CPU. Fields that could not be detected are zero.
type Info struct {
	ModelName    string   `json:"model"`
	Arch         string   `json:"arch"`
	OS           string   `json:"os"`
	LogicalCores int      `json:"logical_cores"`
	Features     []string `json:"features"`
}

// Detect never fails; unreadable sources leave the matching fields empty.
func Detect() Info {
	info := Info{
		Arch:         runtime.GOARCH,
		OS:           runtime.GOOS,
		LogicalCores: runtime.NumCPU(),
		ModelName:    readModelName("/proc/cpuinfo"),
	}
	info.Features = detectFeatures()
	if info.Features == nil {
		info.Features = []string{}
	}
	return info
}

// FeatureSummary returns the detected SIMD features as one line.
func (i Info) FeatureSummary() string {
	if len(i.Features) == 0 {
		return "none detected"
	}
	return strings.Join(i.Features, " ")
}

// readModelName returns the first "model name" entry of a cpuinfo file.
func readModelName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
