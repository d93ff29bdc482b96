package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show QueryGate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("QueryGate %s (%s)\n", Version, build)
	},
}
