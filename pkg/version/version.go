package version

import (
	"runtime"
	"time"
)

// Values are injected by the build via -ldflags.
var (
	GITVERSION = "v0.0.0-xxxxxxx"
	GITCOMMIT  = ""
	BUILDDATE  = "" // in ISO8601 format, output of $(date -u +'%Y-%m-%dT%H:%M:%SZ')
)

type BuildVersionInfo struct {
	GitVersion string    `json:"GitVersion" yaml:"GitVersion"`
	GitCommit  string    `json:"GitCommit" yaml:"GitCommit"`
	BuildDate  time.Time `json:"BuildDate" yaml:"BuildDate"`
	GOOS       string    `json:"GOOS" yaml:"GOOS"`
	GOARCH     string    `json:"GOARCH" yaml:"GOARCH"`
}

// Get returns the overall codebase version. It's for detecting
// what code a binary was built from.
func Get() *BuildVersionInfo {
	buildDate, err := time.Parse(time.RFC3339, BUILDDATE)
	if err != nil {
		buildDate = time.Time{}
	}
	return &BuildVersionInfo{
		GitVersion: GITVERSION,
		GitCommit:  GITCOMMIT,
		BuildDate:  buildDate,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}
}
