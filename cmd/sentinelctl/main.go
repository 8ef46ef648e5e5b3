package main

import (
	"fmt"
	"os"

	"sentineld/internal/ctl"
)

func main() {
	if err := ctl.BuildRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sentinelctl: %v\n", err)
		os.Exit(1)
	}
}
