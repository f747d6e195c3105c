// Command pricectl operates the electricity price comparison backend.
package main

import (
	"os"

	"electricity-compare/cmd/pricectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
