// Package main provides the entry point for harvestsim.
// harvestsim is a cycle-accurate ARMv6-M interpreter coupled to an
// energy-harvesting checkpoint/restore scheme.
//
// For the full CLI, use: go run ./cmd/harvestsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("harvestsim - ARMv6-M energy-harvesting processor simulator")
	fmt.Println("")
	fmt.Println("Usage: harvestsim [options] <program.bin|program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -scheme     Energy-harvesting scheme: odab or periodic")
	fmt.Println("  -harvest    Path to a harvest trace CSV")
	fmt.Println("  -cycles     Cycle limit")
	fmt.Println("  -stats-out  Path to write the stats JSON document")
	fmt.Println("  -v          Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/harvestsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/harvestsim' instead.")
	}
}
