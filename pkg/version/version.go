// pkg/version/version.go
// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of scribe.
	Version = "dev"
	// Commit holds the current version commit of scribe.
	Commit = "none"
	// BuildDate holds the build date of scribe.
	BuildDate = "unknown"
	// StartDate holds the start date of scribe.
	StartDate = time.Now()
)

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version" yaml:"version"`
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Compiler  string `json:"compiler" yaml:"compiler"`
	Platform  string `json:"platform" yaml:"platform"`
	Release   bool   `json:"release" yaml:"release"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("Scribe %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
}

// GetVersion returns the full build information, including the Go toolchain
// and platform. Tag is the canonical release tag when Version is a valid
// semantic version; Release is false for prerelease and development builds.
func GetVersion() Struct {
	info := Get()
	if v, err := Semver(); err == nil {
		info.Tag = "v" + v.String()
	}
	info.Release = IsRelease()
	info.GoVersion = runtime.Version()
	info.Compiler = runtime.Compiler
	info.Platform = runtime.GOOS + "/" + runtime.GOARCH
	return info
}

// Semver parses Version as a semantic version.
func Semver() (*semver.Version, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("version %q is not a semantic version: %w", Version, err)
	}
	return v, nil
}

// IsRelease reports whether Version is a semantic version without a
// prerelease suffix.
func IsRelease() bool {
	v, err := Semver()
	return err == nil && v.Prerelease() == ""
}

// UserAgent returns the User-Agent sent to the transcription service,
// e.g. "scribe/1.4.0 (linux/amd64)". Development builds report "scribe/dev".
func UserAgent() string {
	ver := "dev"
	if v, err := Semver(); err == nil {
		ver = v.String()
	}
	return fmt.Sprintf("scribe/%s (%s/%s)", ver, runtime.GOOS, runtime.GOARCH)
}
