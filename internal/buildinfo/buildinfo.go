// Package buildinfo holds release metadata stamped at link time:
//
//	go build -ldflags "-X github.com/aidanlsb/weft/internal/buildinfo.Version=v0.3.0"
//
// Local builds leave them empty and `weft version` reads module build info.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
