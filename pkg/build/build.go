// Package build carries version information stamped in at link time with
// -ldflags "-X github.com/kgcourse/geopub/pkg/build.Version=...".
package build

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)
