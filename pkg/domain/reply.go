package domain

// Button is a selectable option; pressing it delivers Event.
type Button struct {
	Label string `json:"label"`
	Event Event  `json:"event"`
}

// Keyboard is a grid of buttons attached to a message.
// Inline keyboards belong to the message; reply keyboards replace the input field.
type Keyboard struct {
	Inline bool       `json:"inline"`
	Rows   [][]Button `json:"rows"`
}

// Buttons returns every button in row order.
func (k *Keyboard) Buttons() []Button {
	if k == nil {
		return nil
	}
	var out []Button
	for _, row := range k.Rows {
		out = append(out, row...)
	}
	return out
}

// Message is one chunk of text to show the actor.
type Message struct {
	Text     string    `json:"text"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
}

// ArtifactKind identifies a delivered artifact.
type ArtifactKind string

const (
	ArtifactExport ArtifactKind = "export"
	ArtifactChart  ArtifactKind = "chart"
)

// Artifact is an opaque blob the transport delivers as a file.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`
	Name string       `json:"name"`
	MIME string       `json:"mime"`
	Data []byte       `json:"data"`
}

// Reply is everything the host should deliver after processing one event.
type Reply struct {
	ActorID   string            `json:"actor_id"`
	State     ConversationState `json:"state"`
	Messages  []Message         `json:"messages"`
	Artifacts []Artifact        `json:"artifacts,omitempty"`

	// Ended is set once the session is gone (finalized, cancelled or aborted).
	Ended bool `json:"ended"`

	// Rejected carries the error kind when the event was refused.
	Rejected ErrorKind `json:"rejected,omitempty"`
}

// Say appends a plain message.
func (r *Reply) Say(text string) {
	r.Messages = append(r.Messages, Message{Text: text})
}

// Ask appends a message with a keyboard.
func (r *Reply) Ask(text string, kb *Keyboard) {
	r.Messages = append(r.Messages, Message{Text: text, Keyboard: kb})
}

// Keyboard returns the keyboard of the last message that has one.
func (r *Reply) Keyboard() *Keyboard {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Keyboard != nil {
			return r.Messages[i].Keyboard
		}
	}
	return nil
}
