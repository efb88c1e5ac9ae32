// Package version reports the httpkit build version. It is stamped with
// -ldflags or read from the module build info:
//
//	go build -ldflags "-X github.com/kbukum/httpkit/version.Version=1.2.0"
package version
