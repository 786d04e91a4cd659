// Package version reports build information for callguard binaries.
//
// Version, git commit, branch and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/callguard/version.Version=1.0.0" ./cmd/callguard-probe
package version
