// Command labgen generates synthetic lab datasets from the command line and
// can also run the web server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
