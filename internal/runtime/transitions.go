package runtime

import "github.com/aretw0/splitbill/pkg/domain"

// Transition is one edge of the conversation graph.
type Transition struct {
	From domain.ConversationState
	To   domain.ConversationState
	On   string
}

// Transitions lists the edges the engine can take on success, for introspection and diagrams.
// Cancel (from every state) and rejections (self loops) are implied.
func Transitions() []Transition {
	return []Transition{
		{domain.StateSelectingAction, domain.StateAddingMembers, string(domain.ActionAddMembers)},
		{domain.StateSelectingAction, domain.StateSelectingPayer, string(domain.ActionStart)},
		{domain.StateAddingMembers, domain.StateSelectingAction, "names"},
		{domain.StateSelectingPayer, domain.StateAddingItem, "payer"},
		{domain.StateAddingItem, domain.StateAddingItemName, string(domain.ActionAddItem)},
		{domain.StateAddingItem, domain.StateAddingItemPrice, "name"},
		{domain.StateAddingItem, domain.StateScanningCode, string(domain.ActionScanCode)},
		{domain.StateAddingItem, domain.StateImportingTable, string(domain.ActionImportTable)},
		{domain.StateAddingItem, domain.StateReviewingAssignments, string(domain.ActionFinish)},
		{domain.StateAddingItemName, domain.StateAddingItemPrice, "name"},
		{domain.StateAddingItemPrice, domain.StateSelectingItemKind, "price"},
		{domain.StateSelectingItemKind, domain.StateAddingItem, string(domain.ActionShared)},
		{domain.StateSelectingItemKind, domain.StateReviewingAssignments, string(domain.ActionIndividual)},
		{domain.StateScanningCode, domain.StateAddingItem, "code"},
		{domain.StateImportingTable, domain.StateAddingItem, "document"},
		{domain.StateReviewingAssignments, domain.StateReviewingAssignments, string(domain.ActionNext)},
		{domain.StateReviewingAssignments, domain.StateAddingItem, string(domain.ActionMoreItems)},
		{domain.StateReviewingAssignments, domain.StateFinalized, string(domain.ActionFinish)},
	}
}

// States lists every state in workflow order.
func States() []domain.ConversationState {
	return []domain.ConversationState{
		domain.StateSelectingAction,
		domain.StateAddingMembers,
		domain.StateSelectingPayer,
		domain.StateAddingItem,
		domain.StateAddingItemName,
		domain.StateAddingItemPrice,
		domain.StateSelectingItemKind,
		domain.StateScanningCode,
		domain.StateImportingTable,
		domain.StateReviewingAssignments,
		domain.StateFinalized,
		domain.StateCancelled,
	}
}
