// Package config exposes the build identity stamped into PortSense
// binaries.
package config

// Set at build time via -ldflags, for example:
//
//	-X github.com/portsense/portsense/pkg/config.Version=v1.2.0
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)
