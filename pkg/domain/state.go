package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversationState identifies where a session is in the workflow.
type ConversationState string

const (
	StateSelectingAction      ConversationState = "selecting_action"
	StateAddingMembers        ConversationState = "adding_members"
	StateSelectingPayer       ConversationState = "selecting_payer"
	StateAddingItem           ConversationState = "adding_item"
	StateAddingItemName       ConversationState = "adding_item_name"
	StateAddingItemPrice      ConversationState = "adding_item_price"
	StateSelectingItemKind    ConversationState = "selecting_item_kind"
	StateScanningCode         ConversationState = "scanning_code"
	StateImportingTable       ConversationState = "importing_table"
	StateReviewingAssignments ConversationState = "reviewing_assignments"
	StateFinalized            ConversationState = "finalized" // Sink
	StateCancelled            ConversationState = "cancelled" // Sink
)

// Terminal reports whether no further events are accepted in s.
func (s ConversationState) Terminal() bool {
	return s == StateFinalized || s == StateCancelled
}

// Draft is the manual item being typed in, between the name and kind sub-steps.
type Draft struct {
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Session is the runtime snapshot of one actor's workflow.
type Session struct {
	ActorID      string            `json:"actor_id"`
	State        ConversationState `json:"state"`
	Participants []string          `json:"participants"`
	Ledger       Ledger            `json:"ledger"`
	Cursor       int               `json:"cursor"`
	Draft        Draft             `json:"draft"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	// Sealed holds the encrypted session when it went through an encrypting store.
	// A sealed session only carries ActorID, State and the timestamps in the clear.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewSession creates a clean session in the initial state.
func NewSession(actorID string, now time.Time) *Session {
	return &Session{
		ActorID:      actorID,
		State:        StateSelectingAction,
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy, so a working copy can be mutated and discarded.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = append([]string{}, s.Participants...)
	c.Ledger = s.Ledger.Clone()
	c.Sealed = append([]byte(nil), s.Sealed...)
	return &c
}

// CurrentItem returns the item under the cursor.
func (s *Session) CurrentItem() (*Item, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Ledger.Items) {
		return nil, false
	}
	return &s.Ledger.Items[s.Cursor], true
}

// IdleFor returns how long the session has gone without an event.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}
