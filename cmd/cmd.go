// Package cmd holds build information stamped in by the linker:
//
//	go build -ldflags "-X github.com/circleci/visits/cmd.Version=1.2.3 -X github.com/circleci/visits/cmd.Date=..."
package cmd

var (
	Version = "dev"
	Date    = "unknown"
)
