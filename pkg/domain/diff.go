package domain

import (
	"reflect"
)

// SessionDiff represents the changes one event made to a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// ActorID is always present to identify the target.
	ActorID string `json:"actor_id"`

	State        *ConversationState `json:"state,omitempty"`
	Cursor       *int               `json:"cursor,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Payer        *string            `json:"payer,omitempty"`

	// Items holds the 1-based positions of added or modified items.
	Items []int `json:"items,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{ActorID: newSession.ActorID}

	if oldSession == nil || oldSession.State != newSession.State {
		diff.State = &newSession.State
	}
	if oldSession == nil || oldSession.Cursor != newSession.Cursor {
		diff.Cursor = &newSession.Cursor
	}
	if oldSession == nil || !reflect.DeepEqual(oldSession.Participants, newSession.Participants) {
		diff.Participants = append([]string{}, newSession.Participants...)
	}
	if oldSession == nil || oldSession.Ledger.Payer != newSession.Ledger.Payer {
		diff.Payer = &newSession.Ledger.Payer
	}
	diff.Items = diffItems(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffItems(old, new *Session) []int {
	var changed []int
	for i, it := range new.Ledger.Items {
		if old == nil || i >= len(old.Ledger.Items) || !sameItem(old.Ledger.Items[i], it) {
			changed = append(changed, i+1)
		}
	}
	return changed
}

func sameItem(a, b Item) bool {
	return a.Name == b.Name &&
		a.Kind == b.Kind &&
		a.UnitPrice.Equal(b.UnitPrice) &&
		a.Quantity.Equal(b.Quantity) &&
		reflect.DeepEqual(a.Assignees, b.Assignees)
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.State == nil &&
		d.Cursor == nil &&
		d.Participants == nil &&
		d.Payer == nil &&
		len(d.Items) == 0
}
