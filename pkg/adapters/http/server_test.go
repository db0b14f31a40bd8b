package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) domain.Reply {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reply domain.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return reply
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(splitbill.New())

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"app":"splitbill-http"`)
	assert.Contains(t, w.Body.String(), splitbill.Version)
}

func TestConversationOverHTTP(t *testing.T) {
	h := NewHandler(splitbill.New())
	post := func(body string) domain.Reply {
		return decodeReply(t, do(t, h, "POST", "/v1/actors/alice/events", body))
	}

	reply := post(`{"action":"begin"}`)
	assert.Equal(t, domain.StateSelectingAction, reply.State)
	assert.Equal(t, "alice", reply.ActorID)

	post(`{"type":"action","action":"add_members"}`)
	post(`{"text":"A, B, C"}`)
	post(`{"action":"start"}`)
	reply = post(`{"text":"A"}`)
	require.Equal(t, domain.StateAddingItem, reply.State)

	post(`{"action":"add_item"}`)
	post(`{"text":"bread"}`)
	// Numbers are accepted where text is expected.
	post(`{"text":90}`)
	reply = post(`{"action":"shared"}`)
	require.Equal(t, domain.StateAddingItem, reply.State)

	w := do(t, h, "GET", "/v1/actors", "")
	assert.JSONEq(t, `{"actors":["alice"]}`, w.Body.String())

	current := decodeReply(t, do(t, h, "GET", "/v1/actors/alice", ""))
	assert.Equal(t, domain.StateAddingItem, current.State)

	reply = post(`{"action":"finish"}`)
	require.Equal(t, domain.StateReviewingAssignments, reply.State)
	assert.False(t, reply.Ended)

	reply = post(`{"action":"finish"}`)
	assert.True(t, reply.Ended)
	assert.Equal(t, domain.StateFinalized, reply.State)
	require.Len(t, reply.Artifacts, 2)

	w = do(t, h, "GET", "/v1/actors/alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostEvent_Rejection(t *testing.T) {
	h := NewHandler(splitbill.New())

	reply := decodeReply(t, do(t, h, "POST", "/v1/actors/bob/events", `{"action":"start"}`))
	assert.Equal(t, domain.KindValidation, reply.Rejected)
	assert.Equal(t, domain.StateSelectingAction, reply.State)
}

func TestPostEvent_BadRequests(t *testing.T) {
	h := NewHandler(splitbill.New())
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown field", `{"txt":"hello"}`},
		{"bad base64", `{"type":"photo","data":"%%%"}`},
		{"unknown type", `{"type":"sticker"}`},
		{"action without name", `{"type":"action"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/v1/actors/carol/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestEventRequest_TypeInference(t *testing.T) {
	tests := []struct {
		req  EventRequest
		want domain.EventType
	}{
		{EventRequest{Text: "hi"}, domain.EventText},
		{EventRequest{Action: domain.ActionFinish}, domain.EventAction},
		{EventRequest{Data: "aGk="}, domain.EventPhoto},
		{EventRequest{Data: "aGk=", FileName: "bill.csv"}, domain.EventDocument},
	}
	for _, tt := range tests {
		ev, err := tt.req.Event()
		require.NoError(t, err)
		assert.Equal(t, tt.want, ev.Type)
	}

	ev, err := EventRequest{Data: "aGk="}.Event()
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), ev.Data)
}

func TestCancelActor(t *testing.T) {
	h := NewHandler(splitbill.New())
	do(t, h, "POST", "/v1/actors/dave/events", `{"action":"add_members"}`)

	reply := decodeReply(t, do(t, h, "DELETE", "/v1/actors/dave", ""))
	assert.True(t, reply.Ended)
	assert.Equal(t, domain.StateCancelled, reply.State)

	w := do(t, h, "GET", "/v1/actors", "")
	assert.JSONEq(t, `{"actors":[]}`, w.Body.String())
}

func TestSettle(t *testing.T) {
	h := NewHandler(splitbill.New())
	body := `{
		"participants": ["A, B", "C"],
		"payer": "A",
		"items": [
			{"name": "bread", "price": 90},
			{"name": "coffee", "price": "30,00", "quantity": 2, "assignees": ["B", "C"]}
		]
	}`

	w := do(t, h, "POST", "/v1/settle", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SettleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Total: 150.00", "Paid by: A", "B owes 60.00 to A", "C owes 60.00 to A"}, resp.Narrative)
	assert.NotEmpty(t, resp.Verification)
	assert.Contains(t, resp.Export, "bread")
	assert.Contains(t, resp.Chart, "pie")
}

func TestSettle_Errors(t *testing.T) {
	h := NewHandler(splitbill.New())

	w := do(t, h, "POST", "/v1/settle", `{"participants":["A"],"payer":"Z","items":[{"name":"x","price":"1"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	w = do(t, h, "POST", "/v1/settle", `{"participants":["A","B"],"payer":"A","items":[{"name":"x","price":"1","kind":"individual"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

type brokenEngine struct{ Engine }

func (brokenEngine) Handle(context.Context, string, domain.Event) (domain.Reply, error) {
	return domain.Reply{}, errors.New("store down")
}

func TestStoreFailureIs500(t *testing.T) {
	h := NewHandler(brokenEngine{})
	w := do(t, h, "POST", "/v1/actors/x/events", `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(splitbill.New())
	w := do(t, h, "OPTIONS", "/v1/settle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	h := NewHandler(splitbill.New(splitbill.WithLifecycleHooks(m.Hooks())), WithMetrics(reg))
	do(t, h, "POST", "/v1/actors/eve/events", `{"action":"add_members"}`)

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "splitbill_events_total")
}

func TestSubscribeEvents(t *testing.T) {
	h := NewHandler(splitbill.New())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/v1/actors/frank/stream?watch=rejected", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	send := func(body string) {
		r, err := http.Post(srv.URL+"/v1/actors/frank/events", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		r.Body.Close()
	}
	// Accepted first, filtered out; then a rejected one that passes the watch.
	send(`{"action":"begin"}`)
	send(`{"action":"start"}`)

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal([]byte(data), &reply))
	assert.Equal(t, domain.KindValidation, reply.Rejected)
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, unsubscribe := sm.Subscribe("a")

	sm.Broadcast("a", "one")
	sm.Broadcast("b", "ignored")
	assert.Equal(t, "one", <-ch)

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	sm.Broadcast("a", "after")
}
