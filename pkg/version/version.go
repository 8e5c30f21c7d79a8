// Package version provides the janitor tool version.
package version

// Version is the janitor tool version.
// Can be overridden at build time with:
//   go build -ldflags "-X github.com/ghrammr/janitor/pkg/version.Version=2.0.1"
var Version = "dev"
