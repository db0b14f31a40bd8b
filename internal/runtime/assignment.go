package runtime

import (
	"fmt"

	"github.com/aretw0/splitbill/pkg/domain"
)

// Toggle flips the membership of name on an Individual item.
// Assignees stay in participant order, so toggling twice restores the previous set.
func Toggle(it *domain.Item, participants []string, name string) error {
	if it.Kind != domain.KindIndividual {
		return domain.ValidationError("Only individual items can be assigned. Make the item individual first.")
	}
	if !domain.Contains(participants, name) {
		return domain.ValidationError(fmt.Sprintf("%q is not a participant.", name))
	}

	if it.HasAssignee(name) {
		kept := make([]string, 0, len(it.Assignees))
		for _, a := range it.Assignees {
			if a != name {
				kept = append(kept, a)
			}
		}
		it.Assignees = kept
	} else {
		it.Assignees = domain.Canonical(participants, append(append([]string{}, it.Assignees...), name))
	}
	it.Remembered = nil
	return nil
}

// ToggleAll assigns everyone, or undoes a previous ToggleAll.
// Switching to everyone remembers the current subset; switching back restores it
// (or clears the item when nothing was remembered).
func ToggleAll(it *domain.Item, participants []string) error {
	if it.Kind != domain.KindIndividual {
		return domain.ValidationError("Shared items are already split between everyone.")
	}

	if domain.SameMembers(it.Assignees, participants) {
		it.Assignees = domain.Canonical(participants, it.Remembered)
		it.Remembered = nil
		return nil
	}
	it.Remembered = append([]string{}, it.Assignees...)
	it.Assignees = append([]string{}, participants...)
	return nil
}

// ChangeKind flips Shared and Individual.
// A Shared item is assigned to everyone; an Individual one starts unassigned.
func ChangeKind(it *domain.Item, participants []string) {
	switch it.Kind {
	case domain.KindShared:
		it.Kind = domain.KindIndividual
		it.Assignees = []string{}
	default:
		it.Kind = domain.KindShared
		it.Assignees = append([]string{}, participants...)
	}
	it.Remembered = nil
}

// CheckItem rejects leaving an Individual item without assignees.
func CheckItem(l domain.Ledger, cursor int) error {
	if cursor < 0 || cursor >= len(l.Items) {
		return domain.FatalError(fmt.Errorf("cursor %d out of range [0,%d)", cursor, len(l.Items)))
	}
	if !l.Items[cursor].ReadyToSettle() {
		return domain.ValidationError("Assign at least one participant to item", cursor+1)
	}
	return nil
}

// CheckComplete rejects finalizing while any Individual item is unassigned.
func CheckComplete(l domain.Ledger) error {
	if positions := l.Unassigned(); len(positions) > 0 {
		return domain.ValidationError("Assign participants to every individual item before finishing. Unassigned items", positions...)
	}
	return nil
}
