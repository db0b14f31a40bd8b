package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of splitbill",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("splitbill version %s\n", strings.TrimSpace(splitbill.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
