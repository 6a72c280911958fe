// Package version holds build-time identification for the aggnsa binaries.
package version

import "fmt"

// Version, GitCommit and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/aggnsa/aggnsa/pkg/version.Version=v1.0.0 \
//	  -X github.com/aggnsa/aggnsa/pkg/version.GitCommit=abc1234 \
//	  -X github.com/aggnsa/aggnsa/pkg/version.BuildDate=2026-07-31"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a one-line human-readable build identification string.
func Info() string {
	return fmt.Sprintf("aggnsa %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
