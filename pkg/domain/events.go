package domain

import (
	"context"
	"time"
)

// EventType defines the category of an incoming event.
type EventType string

const (
	EventText     EventType = "text"
	EventAction   EventType = "action"
	EventPhoto    EventType = "photo"
	EventDocument EventType = "document"
)

// Action is a button press or command.
type Action string

const (
	ActionBegin       Action = "begin"  // Restart the workflow (e.g. the /start command)
	ActionCancel      Action = "cancel" // Abort and discard the session
	ActionAddMembers  Action = "add_members"
	ActionStart       Action = "start"
	ActionAddItem     Action = "add_item"
	ActionScanCode    Action = "scan_code"
	ActionImportTable Action = "import_table"
	ActionFinish      Action = "finish"
	ActionShared      Action = "shared"
	ActionIndividual  Action = "individual"
	ActionToggle      Action = "toggle"
	ActionToggleAll   Action = "toggle_all"
	ActionChangeKind  Action = "change_kind"
	ActionNext        Action = "next"
	ActionPrev        Action = "prev"
	ActionMoreItems   Action = "more_items"
	ActionPay         Action = "pay"
)

// ItemScoped reports whether the action targets the item at Event.Item.
func (a Action) ItemScoped() bool {
	switch a {
	case ActionToggle, ActionToggleAll, ActionChangeKind:
		return true
	default:
		return false
	}
}

// Event is a typed command delivered by a transport.
type Event struct {
	Type   EventType `json:"type"`
	Action Action    `json:"action,omitempty"`
	Text   string    `json:"text,omitempty"`

	// Item is the index of the targeted item for item-scoped actions.
	Item        int    `json:"item,omitempty"`
	Participant string `json:"participant,omitempty"`

	// Payer and Amount are carried by pay buttons, which outlive the session.
	Payer  string `json:"payer,omitempty"`
	Amount string `json:"amount,omitempty"`

	// Data holds photo or document bytes.
	Data     []byte `json:"data,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// Text builds a free-text event.
func Text(s string) Event { return Event{Type: EventText, Text: s} }

// Press builds a plain button event.
func Press(a Action) Event { return Event{Type: EventAction, Action: a} }

// PressItem builds an item-scoped button event.
func PressItem(a Action, item int) Event {
	return Event{Type: EventAction, Action: a, Item: item}
}

// Toggle builds the event that flips participant on item.
func Toggle(item int, participant string) Event {
	return Event{Type: EventAction, Action: ActionToggle, Item: item, Participant: participant}
}

// Photo builds an image event.
func Photo(data []byte) Event { return Event{Type: EventPhoto, Data: data} }

// Document builds a file event.
func Document(name string, data []byte) Event {
	return Event{Type: EventDocument, FileName: name, Data: data}
}

// Is reports whether e is a press of a.
func (e Event) Is(a Action) bool {
	return e.Type == EventAction && e.Action == a
}

// Label names the event for logs and metrics.
func (e Event) Label() string {
	if e.Type == EventAction {
		return string(e.Action)
	}
	return string(e.Type)
}

// TransitionEvent describes one processed event.
type TransitionEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	Event     string            `json:"event"`
	From      ConversationState `json:"from"`
	To        ConversationState `json:"to"`
	Rejected  ErrorKind         `json:"rejected,omitempty"`
}

// CollaboratorEvent describes one call to an external collaborator.
type CollaboratorEvent struct {
	Timestamp    time.Time     `json:"timestamp"`
	ActorID      string        `json:"actor_id"`
	Collaborator string        `json:"collaborator"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`
}

// SessionEvent describes the end of a session.
type SessionEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	State     ConversationState `json:"state"`
	Reason    string            `json:"reason"` // finalized, cancelled, evicted, aborted
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition   func(context.Context, *TransitionEvent)
	OnCollaborator func(context.Context, *CollaboratorEvent)
	OnSessionEnd   func(context.Context, *SessionEvent)
}
