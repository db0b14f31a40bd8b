package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/internal/presentation/graph"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// WorkflowURI is the resource holding the conversation graph as a Mermaid flowchart.
const WorkflowURI = "splitbill://workflow"

// ReplyResponse provides a unified reply structure across adapters.
type ReplyResponse struct {
	State    domain.ConversationState `json:"state" jsonschema_description:"The conversation state after the event"`
	Messages []string                 `json:"messages" jsonschema_description:"Text to show the user"`
	Buttons  []ButtonView             `json:"buttons" jsonschema_description:"Buttons offered by the last prompt"`
	Ended    bool                     `json:"ended" jsonschema_description:"Set once the session is gone"`
	Rejected string                   `json:"rejected,omitempty" jsonschema_description:"Error kind when the event was refused"`
	Files    []string                 `json:"files,omitempty" jsonschema_description:"Names of produced artifacts"`
}

// ButtonView is a button flattened into send_event arguments.
type ButtonView struct {
	Label       string `json:"label"`
	Action      string `json:"action"`
	Item        int    `json:"item,omitempty"`
	Participant string `json:"participant,omitempty"`
}

// SettleResponse is the structured result of settle_bill.
type SettleResponse struct {
	Narrative    []string `json:"narrative" jsonschema_description:"Total, payer and one line per debt"`
	Verification []string `json:"verification" jsonschema_description:"Per item breakdown"`
	Export       string   `json:"export" jsonschema_description:"Semicolon separated table of the ledger"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Handle(ctx context.Context, actorID string, ev domain.Event) (domain.Reply, error)
	Cancel(ctx context.Context, actorID string) (domain.Reply, error)
	Current(ctx context.Context, actorID string) (domain.Reply, error)
}

// Server wraps the splitbill Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("splitbill-mcp", strings.TrimSpace(splitbill.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_event",
		mcp.WithDescription("Send one event to the actor's bill-splitting conversation. Give either text or an action; item and participant come from the buttons of the previous reply."),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("Conversation owner")),
		mcp.WithString("text", mcp.Description("Free text: names, a payer, an item name or a price")),
		mcp.WithString("action", mcp.Description("Button action, e.g. begin, add_item, shared, toggle, finish")),
		mcp.WithNumber("item", mcp.Description("Item index for item-scoped actions")),
		mcp.WithString("participant", mcp.Description("Participant for toggle")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendEvent))

	cancelTool := mcp.NewTool("cancel_session",
		mcp.WithDescription("Discard the actor's conversation."),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("Conversation owner")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(cancelTool, mcp.NewStructuredToolHandler(s.handleCancel))

	currentTool := mcp.NewTool("current_prompt",
		mcp.WithDescription("Repeat the actor's current prompt without changing anything."),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("Conversation owner")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(currentTool, mcp.NewStructuredToolHandler(s.handleCurrent))

	settleTool := mcp.NewTool("settle_bill",
		mcp.WithDescription("Settle a whole bill at once, without a conversation."),
		mcp.WithString("bill", mcp.Required(), mcp.Description(`JSON object: {"participants":["A","B"],"payer":"A","items":[{"name":"bread","price":"90","assignees":["B"]}]}`)),
		mcp.WithOutputSchema[SettleResponse](),
	)
	s.mcpServer.AddTool(settleTool, mcp.NewStructuredToolHandler(s.handleSettle))
}

type eventArgs struct {
	ActorID     string `mapstructure:"actor_id"`
	Text        string `mapstructure:"text"`
	Action      string `mapstructure:"action"`
	Item        int    `mapstructure:"item"`
	Participant string `mapstructure:"participant"`
}

func decodeArgs(args map[string]interface{}, out *eventArgs) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: out})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(out.ActorID) == "" {
		return errors.New("actor_id is required")
	}
	return nil
}

func (s *Server) handleSendEvent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	var a eventArgs
	if err := decodeArgs(args, &a); err != nil {
		return ReplyResponse{}, err
	}

	ev := domain.Text(a.Text)
	if a.Action != "" {
		ev = domain.Event{Type: domain.EventAction, Action: domain.Action(a.Action), Item: a.Item, Participant: a.Participant}
	}

	reply, err := s.engine.Handle(ctx, a.ActorID, ev)
	if err != nil {
		s.logger.Error("MCP send_event failed", "actor", a.ActorID, "err", err)
		return ReplyResponse{}, fmt.Errorf("send event failed: %w", err)
	}
	return toResponse(reply), nil
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	var a eventArgs
	if err := decodeArgs(args, &a); err != nil {
		return ReplyResponse{}, err
	}
	reply, err := s.engine.Cancel(ctx, a.ActorID)
	if err != nil {
		return ReplyResponse{}, fmt.Errorf("cancel failed: %w", err)
	}
	return toResponse(reply), nil
}

func (s *Server) handleCurrent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	var a eventArgs
	if err := decodeArgs(args, &a); err != nil {
		return ReplyResponse{}, err
	}
	reply, err := s.engine.Current(ctx, a.ActorID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return ReplyResponse{}, fmt.Errorf("%s has no conversation; send the begin action first", a.ActorID)
	}
	if err != nil {
		return ReplyResponse{}, fmt.Errorf("current prompt failed: %w", err)
	}
	return toResponse(reply), nil
}

func (s *Server) handleSettle(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SettleResponse, error) {
	raw, _ := args["bill"].(string)

	var bill splitbill.Bill
	if err := json.Unmarshal([]byte(raw), &bill); err != nil {
		return SettleResponse{}, fmt.Errorf("bill is not valid JSON: %w", err)
	}
	rep, err := splitbill.SettleBill(bill)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return SettleResponse{}, errors.New(de.UserMessage())
		}
		return SettleResponse{}, err
	}
	return SettleResponse{
		Narrative:    rep.Narrative,
		Verification: rep.Verification,
		Export:       string(rep.Export),
	}, nil
}

func toResponse(reply domain.Reply) ReplyResponse {
	resp := ReplyResponse{
		State:    reply.State,
		Messages: []string{},
		Buttons:  []ButtonView{},
		Ended:    reply.Ended,
		Rejected: string(reply.Rejected),
	}
	for _, m := range reply.Messages {
		resp.Messages = append(resp.Messages, m.Text)
	}
	for _, b := range reply.Keyboard().Buttons() {
		resp.Buttons = append(resp.Buttons, ButtonView{
			Label:       b.Label,
			Action:      string(b.Event.Action),
			Item:        b.Event.Item,
			Participant: b.Event.Participant,
		})
	}
	for _, a := range reply.Artifacts {
		resp.Files = append(resp.Files, a.Name)
	}
	return resp
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkflowURI, "Conversation Workflow",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkflowURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.Workflow(""),
			},
		}, nil
	})
}
