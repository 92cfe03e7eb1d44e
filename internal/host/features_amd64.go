package host

import "golang.org/x/sys/cpu"

// detectFeatures probes each x86-64 extension individually; AVX2 does not
// imply AVX-512 or AMX.
func detectFeatures() []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(cpu.X86.HasAVX, "AVX")
	add(cpu.X86.HasAVX2, "AVX2")
	add(cpu.X86.HasFMA, "FMA")
	add(cpu.X86.HasAVX512F, "AVX-512")
	add(cpu.X86.HasAMXBF16, "AMX")
	return out
}
