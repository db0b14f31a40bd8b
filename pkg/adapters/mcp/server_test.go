package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEvent_Conversation(t *testing.T) {
	s := NewServer(splitbill.New(), nil)
	ctx := context.Background()
	send := func(args map[string]interface{}) ReplyResponse {
		t.Helper()
		args["actor_id"] = "agent"
		resp, err := s.handleSendEvent(ctx, mcp.CallToolRequest{}, args)
		require.NoError(t, err)
		return resp
	}

	resp := send(map[string]interface{}{"action": "begin"})
	assert.Equal(t, domain.StateSelectingAction, resp.State)
	require.NotEmpty(t, resp.Buttons)

	send(map[string]interface{}{"action": "add_members"})
	send(map[string]interface{}{"text": "A, B"})
	send(map[string]interface{}{"action": "start"})
	send(map[string]interface{}{"text": "A"})
	send(map[string]interface{}{"action": "add_item"})
	send(map[string]interface{}{"text": "pizza"})
	send(map[string]interface{}{"text": 40})
	resp = send(map[string]interface{}{"action": "individual"})
	require.Equal(t, domain.StateReviewingAssignments, resp.State)

	var toggle *ButtonView
	for i, b := range resp.Buttons {
		if b.Action == string(domain.ActionToggle) && b.Participant == "B" {
			toggle = &resp.Buttons[i]
		}
	}
	require.NotNil(t, toggle)
	// Item arrives as a JSON number.
	send(map[string]interface{}{"action": toggle.Action, "item": float64(toggle.Item), "participant": toggle.Participant})

	resp = send(map[string]interface{}{"action": "finish"})
	assert.True(t, resp.Ended)
	assert.Contains(t, resp.Messages[0], "Total: 40.00")
	assert.Len(t, resp.Files, 2)
}

func TestSendEvent_RequiresActor(t *testing.T) {
	s := NewServer(splitbill.New(), nil)
	_, err := s.handleSendEvent(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"text": "hi"})
	assert.Error(t, err)
}

func TestCancelAndCurrent(t *testing.T) {
	s := NewServer(splitbill.New(), nil)
	ctx := context.Background()
	args := map[string]interface{}{"actor_id": "agent"}

	_, err := s.handleCurrent(ctx, mcp.CallToolRequest{}, args)
	assert.ErrorContains(t, err, "no conversation")

	_, err = s.handleSendEvent(ctx, mcp.CallToolRequest{}, map[string]interface{}{"actor_id": "agent", "action": "add_members"})
	require.NoError(t, err)

	resp, err := s.handleCurrent(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAddingMembers, resp.State)

	resp, err = s.handleCancel(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.True(t, resp.Ended)
	assert.Equal(t, domain.StateCancelled, resp.State)
}

func TestSettleBill(t *testing.T) {
	s := NewServer(splitbill.New(), nil)
	bill := `{"participants":["A","B","C"],"payer":"A","items":[{"name":"bread","price":"100"}]}`

	resp, err := s.handleSettle(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"bill": bill})
	require.NoError(t, err)
	assert.Equal(t, []string{"Total: 100.00", "Paid by: A", "B owes 33.33 to A", "C owes 33.33 to A"}, resp.Narrative)
	assert.Contains(t, resp.Export, "bread")

	_, err = s.handleSettle(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"bill": "{"})
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = s.handleSettle(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"bill": `{"participants":["A"],"payer":"B","items":[]}`})
	assert.ErrorContains(t, err, "not a participant")
}
