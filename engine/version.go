package engine

// Version of updrm.
// This variable can be overridden at build time using:
//
//	go build -ldflags "-X github.com/mirseo/updrm/engine.Version=v1.0.0"
var Version = "dev"
