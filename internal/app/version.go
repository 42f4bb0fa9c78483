package app

import "fmt"

// BuildInfo identifies the running binary. Release builds set it through
// ldflags in main.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

var build = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

// SetBuildInfo overrides the non-empty fields.
func SetBuildInfo(version, commit, date string) {
	if version != "" {
		build.Version = version
	}
	if commit != "" {
		build.Commit = commit
	}
	if date != "" {
		build.Date = date
	}
}

func CurrentBuildInfo() BuildInfo { return build }

func BuildVersionString() string {
	return fmt.Sprintf("%s (%s) %s", build.Version, build.Commit, build.Date)
}
