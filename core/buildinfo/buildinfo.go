// Package buildinfo carries version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/m3rciful/ratebot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/ratebot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/ratebot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build time. Empty for local builds.
	Date = ""
)
