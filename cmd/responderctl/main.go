// Command responderctl signs a device in to RescueLink from a terminal using
// the same email and one-time-code flow as the mobile app.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
