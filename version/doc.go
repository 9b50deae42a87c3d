// Package version reports scribegate build information for the /version
// endpoint and the startup banner.
//
// Version, commit and build time are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/scribegate/version.Version=1.4.0 \
//	    -X github.com/kbukum/scribegate/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not injected, the VCS stamp embedded by the go tool is used.
package version
