package discord

import (
	"strings"
	"testing"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomID_RoundTrip(t *testing.T) {
	events := []domain.Event{
		domain.Press(domain.ActionFinish),
		domain.Toggle(3, "Anna | Maria"),
		domain.Toggle(1, "#2 50%"),
		domain.PressItem(domain.ActionToggleAll, 12),
		{Type: domain.EventAction, Action: domain.ActionPay, Payer: "Иван", Participant: "B", Amount: "33.34"},
	}
	for _, ev := range events {
		id, err := EncodeCustomID(ev, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(id), MaxCustomID)

		got, err := DecodeCustomID(id)
		require.NoError(t, err)
		assert.Equal(t, -1, got.Participant)
		assert.Equal(t, ev, got.Event)
		assert.Equal(t, ev, got.Resolve(nil))
	}
}

func TestCustomID_NonASCIIKeepsLength(t *testing.T) {
	name := strings.Repeat("Ж", 40)
	id, err := EncodeCustomID(domain.Event{Type: domain.EventAction, Action: domain.ActionPay, Payer: "A", Participant: name, Amount: "1.00"}, nil)
	require.NoError(t, err)
	assert.Contains(t, id, name)
}

func TestCustomID_ToggleByPosition(t *testing.T) {
	long := strings.Repeat("Bartholomew ", 12)
	members := []string{"A", long, "C"}

	id, err := EncodeCustomID(domain.Toggle(4, long), members)
	require.NoError(t, err)
	assert.Equal(t, "sb|toggle|4|#1||", id)

	got, err := DecodeCustomID(id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Participant)
	assert.Equal(t, domain.Toggle(4, long), got.Resolve(members))

	// A position the session no longer has leaves the participant empty.
	assert.Empty(t, got.Resolve([]string{"A"}).Participant)
}

func TestEncodeCustomID_Errors(t *testing.T) {
	_, err := EncodeCustomID(domain.Text("hello"), nil)
	assert.Error(t, err)

	// Names outside the participant list still travel in full.
	_, err = EncodeCustomID(domain.Toggle(0, strings.Repeat("x", 90)), []string{"A"})
	assert.ErrorContains(t, err, "limit")
}

func TestDecodeCustomID_Foreign(t *testing.T) {
	for _, id := range []string{"", "other|finish", "xx|finish|0|||"} {
		_, err := DecodeCustomID(id)
		assert.ErrorIs(t, err, ErrForeignCustomID, id)
	}

	_, err := DecodeCustomID("sb|toggle|one|A||")
	assert.ErrorContains(t, err, "item")

	_, err = DecodeCustomID("sb|toggle|0|#x||")
	assert.ErrorContains(t, err, "position")
}
