// Package version provides build information for coverfetch.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Name is the application name
	Name = "coverfetch"

	// Version is the semantic version (set via -ldflags at build time)
	Version = "0.1.0"

	// GitCommit is the git commit hash (set via -ldflags at build time)
	GitCommit = ""
)

// Info contains version information
type Info struct {
	Name      string
	Version   string
	GitCommit string
}

// GetInfo returns the current version information
func GetInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
	}
}

// String returns a formatted version string
func (i Info) String() string {
	s := fmt.Sprintf("%s v%s", i.Name, i.Version)
	if i.GitCommit != "" {
		s += fmt.Sprintf(" (%s)", i.GitCommit[:min(7, len(i.GitCommit))])
	}
	return s
}

// UserAgent returns the User-Agent sent with every HTTP request.
func UserAgent() string {
	return Name + "/" + Version
}
