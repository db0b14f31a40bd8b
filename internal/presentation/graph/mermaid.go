package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill/internal/runtime"
	"github.com/aretw0/splitbill/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []domain.ConversationState
	CurrentState  domain.ConversationState
}

// freeText lists the states that wait for typed input rather than a button.
var freeText = map[domain.ConversationState]bool{
	domain.StateAddingMembers:   true,
	domain.StateSelectingPayer:  true,
	domain.StateAddingItemName:  true,
	domain.StateAddingItemPrice: true,
}

// collaborators lists the states that call an external service.
var collaborators = map[domain.ConversationState]bool{
	domain.StateScanningCode:   true,
	domain.StateImportingTable: true,
}

// GenerateMermaid produces a Mermaid flowchart of the conversation graph.
// Shapes follow the kind of state:
// - Initial: ((Circle))
// - Terminal: (((Double circle)))
// - Collaborator call: [[Subroutine]]
// - Free text input: [/Parallelogram/]
// - Default: [Rectangle]
// Cancel edges are drawn dotted from every live state.
func GenerateMermaid(states []domain.ConversationState, transitions []runtime.Transition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, st := range states {
		opener, closer := "[", "]"
		switch {
		case st == domain.StateSelectingAction:
			opener, closer = "((", "))"
		case st.Terminal():
			opener, closer = "(((", ")))"
		case collaborators[st]:
			opener, closer = "[[", "]]"
		case freeText[st]:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(st)), opener, st, closer)
	}

	for _, t := range transitions {
		label := strings.ReplaceAll(t.On, "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(string(t.From)), label, sanitizeMermaidID(string(t.To)))
	}

	cancelled := sanitizeMermaidID(string(domain.StateCancelled))
	for _, st := range states {
		if st.Terminal() {
			continue
		}
		fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", sanitizeMermaidID(string(st)), domain.ActionCancel, cancelled)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, st := range overlay.VisitedStates {
			id := sanitizeMermaidID(string(st))
			if id != "" && !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentState)))
		}
	}

	return sb.String()
}

// Workflow renders the full conversation graph, highlighting current when it is set.
func Workflow(current domain.ConversationState) string {
	var overlay *GraphOverlay
	if current != "" {
		overlay = &GraphOverlay{CurrentState: current}
	}
	return GenerateMermaid(runtime.States(), runtime.Transitions(), overlay)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
