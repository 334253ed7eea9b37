// Package version provides build version information for the application.
// This is a separate package to avoid import cycles between cli and the
// component packages that want to report a user agent.
package version

// Version is the build version string, set by ldflags during build.
// Format: vX.Y.Z or vX.Y.Z-dev for development builds.
var Version = "v1.2.0"

// BuildTime is the build timestamp, set by ldflags during build.
var BuildTime = "unknown"

// UserAgent identifies the tool to NCBI services. NCBI asks automated
// clients to send a descriptive agent string.
func UserAgent() string {
	return "ncbifetch/" + Version
}
