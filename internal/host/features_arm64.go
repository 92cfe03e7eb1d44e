package host

import "golang.org/x/sys/cpu"

func detectFeatures() []string {
	// NEON is mandatory on ARMv8-A.
	out := []string{"NEON"}
	if cpu.ARM64.HasSVE {
		out = append(out, "SVE")
	}
	return out
}
