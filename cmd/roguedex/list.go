package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roguedex/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all built-in bots",
	Long:  `Shows a list of all bot programs registered in roguedex.`,
	Run:   runList,
}

func runList(cmd *cobra.Command, args []string) {
	bots := registry.List()

	if len(bots) == 0 {
		fmt.Println("No bots available.")
		return
	}

	fmt.Println("Available bots:")
	fmt.Println()

	// Calculate column widths
	maxNameLen := 4 // "Name" header
	for _, b := range bots {
		if len(b.Name) > maxNameLen {
			maxNameLen = len(b.Name)
		}
	}

	// Print header
	fmt.Printf("  %-*s  %-6s  %s\n", maxNameLen, "Name", "Budget", "Description")
	fmt.Printf("  %-*s  %-6s  %s\n", maxNameLen, "----", "------", "-----------")

	// Print bots
	for _, b := range bots {
		fmt.Printf("  %-*s  %-6d  %s\n", maxNameLen, b.Name, b.StepBudget, b.Description)
	}

	fmt.Println()
	fmt.Println("Run 'roguedex bots <p1> <p2>' to watch two of them play.")
}
