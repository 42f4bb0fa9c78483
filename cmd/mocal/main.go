package main

import (
	"os"
	"runtime/debug"

	"github.com/agis/mocal/internal/app"
)

// Set at release time with -ldflags "-X main.version=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if version == "" {
		// go install builds carry the module version instead.
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	app.SetBuildInfo(version, commit, date)
	os.Exit(app.Execute())
}
