package discord

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
)

// MaxCustomID is the largest component custom ID Discord accepts.
const MaxCustomID = 100

const (
	customIDPrefix = "sb"
	customIDSep    = "|"
	// participantRef marks a participant slot holding a position instead of a name.
	participantRef = "#"
)

// ErrForeignCustomID is returned for components this bot did not create.
var ErrForeignCustomID = errors.New("custom id does not belong to splitbill")

// Only the characters the format itself uses are escaped, so names keep their length.
var escaper = strings.NewReplacer("%", "%25", customIDSep, "%7C", participantRef, "%23")

// CustomID is a decoded component custom ID.
type CustomID struct {
	Event domain.Event
	// Participant is the position of the toggled participant in the session, or -1
	// when Event.Participant already names them.
	Participant int
}

// Resolve fills in the participant named by position. An unknown position leaves
// the participant empty, which the session rejects.
func (c CustomID) Resolve(participants []string) domain.Event {
	ev := c.Event
	if c.Participant >= 0 && c.Participant < len(participants) {
		ev.Participant = participants[c.Participant]
	}
	return ev
}

// EncodeCustomID packs an action event into a component custom ID:
// sb|action|item|participant|payer|amount.
// A toggled participant found in participants is sent as "#<position>", so toggle
// buttons fit regardless of how long the names are.
func EncodeCustomID(ev domain.Event, participants []string) (string, error) {
	if ev.Type != domain.EventAction {
		return "", fmt.Errorf("only action events fit in buttons, got %q", ev.Type)
	}
	participant := escaper.Replace(ev.Participant)
	if ev.Action == domain.ActionToggle {
		if i := slices.Index(participants, ev.Participant); i >= 0 {
			participant = participantRef + strconv.Itoa(i)
		}
	}
	id := strings.Join([]string{
		customIDPrefix,
		string(ev.Action),
		strconv.Itoa(ev.Item),
		participant,
		escaper.Replace(ev.Payer),
		ev.Amount,
	}, customIDSep)
	if len(id) > MaxCustomID {
		return "", fmt.Errorf("custom id for %s is %d bytes, limit is %d", ev.Action, len(id), MaxCustomID)
	}
	return id, nil
}

// DecodeCustomID is the inverse of EncodeCustomID.
func DecodeCustomID(id string) (CustomID, error) {
	parts := strings.Split(id, customIDSep)
	if len(parts) != 6 || parts[0] != customIDPrefix {
		return CustomID{}, ErrForeignCustomID
	}
	item, err := strconv.Atoi(parts[2])
	if err != nil {
		return CustomID{}, fmt.Errorf("bad item index %q: %w", parts[2], err)
	}

	c := CustomID{Participant: -1}
	var participant string
	if ref, ok := strings.CutPrefix(parts[3], participantRef); ok {
		c.Participant, err = strconv.Atoi(ref)
		if err != nil || c.Participant < 0 {
			return CustomID{}, fmt.Errorf("bad participant position %q", ref)
		}
	} else if participant, err = url.PathUnescape(parts[3]); err != nil {
		return CustomID{}, fmt.Errorf("bad participant: %w", err)
	}
	payer, err := url.PathUnescape(parts[4])
	if err != nil {
		return CustomID{}, fmt.Errorf("bad payer: %w", err)
	}

	c.Event = domain.Event{
		Type:        domain.EventAction,
		Action:      domain.Action(parts[1]),
		Item:        item,
		Participant: participant,
		Payer:       payer,
		Amount:      parts[5],
	}
	return c, nil
}
