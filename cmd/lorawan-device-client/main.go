package main

import (
	"github.com/hiveeyes/lorawan-device-client/cmd/lorawan-device-client/cmd"
)

var version string // set by the compiler

func main() {
	cmd.Execute(version)
}
