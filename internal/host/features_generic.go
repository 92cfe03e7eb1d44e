//go:build !amd64 && !arm64

package host

func detectFeatures() []string { return nil }
