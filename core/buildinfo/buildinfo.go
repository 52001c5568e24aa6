// Package buildinfo reports the version stamped into the binary.
//
//	go build -ldflags "-X github.com/m3rciful/callmylawyer/core/buildinfo.Version=v1.0.0 \
//	  -X github.com/m3rciful/callmylawyer/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/callmylawyer/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Set through -ldflags.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var fillOnce sync.Once

// fill takes the commit and time from the VCS stamp when ldflags left them
// empty, as with a plain go build from a checkout.
func fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "":
				Commit = s.Value
				if len(Commit) > 7 {
					Commit = Commit[:7]
				}
			case s.Key == "vcs.time" && Date == "":
				Date = s.Value
			}
		}
	})
}

// Info returns version, commit and build date. Unknown parts are "unknown".
func Info() (version, commit, date string) {
	fill()
	orUnknown := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}
	return orUnknown(Version), orUnknown(Commit), orUnknown(Date)
}

// String formats Info as "v1.0.0 (abc1234, 2026-10-01T12:00:00Z)".
func String() string {
	v, c, d := Info()
	return fmt.Sprintf("%s (%s, %s)", v, c, d)
}
