// Package version carries the build version string.
package version

// Version is stamped via -ldflags on release builds.
var Version = "dev"
