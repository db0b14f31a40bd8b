package main

import (
	"fmt"

	"github.com/aretw0/splitbill/internal/presentation/graph"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [state]",
	Short: "Export the conversation graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the conversation states, highlighting the given state.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var current domain.ConversationState
		if len(args) > 0 {
			current = domain.ConversationState(args[0])
		}
		fmt.Print(graph.Workflow(current))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
