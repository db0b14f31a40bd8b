// Package discord runs the conversation as a Discord bot: commands and attachments
// arrive as messages, buttons come back as component interactions.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/splitbill/internal/delivery"
	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/bwmarrin/discordgo"
)

const (
	// Discord allows five buttons per row and five rows per message.
	maxButtonsPerRow  = 5
	maxRowsPerMessage = 5
	// maxAttachmentSize bounds downloaded photos and tables.
	maxAttachmentSize = 10 << 20
	maxLabel          = 80
)

// Engine is the part of the session core the bot drives.
type Engine interface {
	Handle(ctx context.Context, actorID string, ev domain.Event) (domain.Reply, error)
	Start(ctx context.Context, actorID string) (domain.Reply, error)
	Cancel(ctx context.Context, actorID string) (domain.Reply, error)
	Current(ctx context.Context, actorID string) (domain.Reply, error)
	Session(ctx context.Context, actorID string) (*domain.Session, error)
}

// Bot connects an Engine to a Discord gateway session.
type Bot struct {
	session *discordgo.Session
	engine  Engine
	prefix  string
	logger  *slog.Logger
	http    *http.Client
	timeout time.Duration
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCommandPrefix sets the prefix of the split and cancel commands. Default "!".
func WithCommandPrefix(p string) Option {
	return func(b *Bot) {
		if p != "" {
			b.prefix = p
		}
	}
}

// WithHTTPClient sets the client used to download attachments.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) { b.http = c }
}

// New creates a bot for token. Nothing connects until Start.
func New(token string, engine Engine, opts ...Option) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	b := &Bot{
		session: session,
		engine:  engine,
		prefix:  "!",
		logger:  logging.NewNop(),
		http:    &http.Client{Timeout: 30 * time.Second},
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("Discord bot connected", "user", event.User.Username, "guilds", len(event.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	actor := m.Author.ID
	content := strings.TrimSpace(m.Content)

	var (
		reply domain.Reply
		err   error
	)
	switch strings.ToLower(content) {
	case b.prefix + "split":
		reply, err = b.engine.Start(ctx, actor)
	case b.prefix + "cancel":
		reply, err = b.engine.Cancel(ctx, actor)
	default:
		// Plain chatter only reaches the engine while the author has a session.
		if _, err := b.engine.Current(ctx, actor); err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				b.logger.Error("Session lookup failed", "actor", actor, "err", err)
			}
			return
		}
		ev, evErr := b.messageEvent(ctx, m.Message)
		if evErr != nil {
			b.logger.Warn("Attachment download failed", "actor", actor, "err", evErr)
			b.send(m.ChannelID, textReply("Could not download the attachment, please send it again."), nil)
			return
		}
		reply, err = b.engine.Handle(ctx, actor, ev)
	}
	if err != nil {
		b.logger.Error("Event failed", "actor", actor, "err", err)
		b.send(m.ChannelID, textReply("Something went wrong, please try again."), nil)
		return
	}
	b.send(m.ChannelID, reply, b.participants(ctx, actor, reply))
}

// messageEvent converts a message into an event: the first attachment wins over text.
func (b *Bot) messageEvent(ctx context.Context, m *discordgo.Message) (domain.Event, error) {
	if len(m.Attachments) == 0 {
		return domain.Text(m.Content), nil
	}
	att := m.Attachments[0]
	data, err := b.download(ctx, att.URL)
	if err != nil {
		return domain.Event{}, err
	}
	if strings.HasPrefix(att.ContentType, "image/") {
		return domain.Photo(data), nil
	}
	return domain.Document(att.Filename, data), nil
}

func (b *Bot) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	id, err := DecodeCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		b.logger.Debug("Ignoring component", "err", err)
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		b.logger.Warn("Interaction ack failed", "err", err)
	}

	actor := interactionUser(i)
	if actor == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	ev := id.Event
	if id.Participant >= 0 {
		var members []string
		if s, err := b.engine.Session(ctx, actor); err == nil {
			members = s.Participants
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			b.logger.Error("Session lookup failed", "actor", actor, "err", err)
		}
		ev = id.Resolve(members)
	}

	reply, err := b.engine.Handle(ctx, actor, ev)
	if err != nil {
		b.logger.Error("Event failed", "actor", actor, "err", err)
		b.send(i.ChannelID, textReply("Something went wrong, please try again."), nil)
		return
	}
	b.send(i.ChannelID, reply, b.participants(ctx, actor, reply))
}

// participants returns the session's participants while assignments are reviewed,
// so toggle buttons can refer to them by position.
func (b *Bot) participants(ctx context.Context, actor string, reply domain.Reply) []string {
	if reply.Ended || reply.State != domain.StateReviewingAssignments {
		return nil
	}
	s, err := b.engine.Session(ctx, actor)
	if err != nil {
		b.logger.Warn("Session lookup failed", "actor", actor, "err", err)
		return nil
	}
	return s.Participants
}

func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func (b *Bot) send(channelID string, reply domain.Reply, participants []string) {
	for _, msg := range Render(reply, participants, b.logger) {
		if _, err := b.session.ChannelMessageSendComplex(channelID, msg); err != nil {
			b.logger.Error("Message send failed", "channel", channelID, "err", err)
			return
		}
	}
}

func textReply(text string) domain.Reply {
	var r domain.Reply
	r.Say(text)
	return r
}

// Render turns a reply into Discord messages: text chunked to the message limit,
// keyboards as button rows on the last chunk, and artifacts as files on the final message.
// Toggle buttons name participants by their position in participants.
// Buttons whose event still does not fit a custom ID are logged and left out.
func Render(reply domain.Reply, participants []string, logger *slog.Logger) []*discordgo.MessageSend {
	if logger == nil {
		logger = logging.NewNop()
	}
	var out []*discordgo.MessageSend
	for _, m := range reply.Messages {
		chunks := delivery.Split(m.Text, delivery.DefaultLimit)
		if len(chunks) == 0 {
			chunks = []string{"\u200b"}
		}
		for _, c := range chunks {
			out = append(out, &discordgo.MessageSend{Content: c})
		}
		rows := buttonRows(m.Keyboard, participants, logger)
		for n := 0; len(rows) > 0; n++ {
			take := min(len(rows), maxRowsPerMessage)
			target := out[len(out)-1]
			if n > 0 {
				target = &discordgo.MessageSend{Content: "\u200b"}
				out = append(out, target)
			}
			target.Components = rows[:take]
			rows = rows[take:]
		}
	}

	if len(reply.Artifacts) > 0 {
		if len(out) == 0 || len(out[len(out)-1].Components) > 0 {
			out = append(out, &discordgo.MessageSend{})
		}
		last := out[len(out)-1]
		for _, a := range reply.Artifacts {
			last.Files = append(last.Files, &discordgo.File{
				Name:        a.Name,
				ContentType: a.MIME,
				Reader:      bytes.NewReader(a.Data),
			})
		}
	}
	return out
}

func buttonRows(kb *domain.Keyboard, participants []string, logger *slog.Logger) []discordgo.MessageComponent {
	if kb == nil {
		return nil
	}
	var rows []discordgo.MessageComponent
	for _, row := range kb.Rows {
		var buttons []discordgo.MessageComponent
		for _, btn := range row {
			id, err := EncodeCustomID(btn.Event, participants)
			if err != nil {
				logger.Warn("Dropping button", "label", btn.Label, "err", err)
				continue
			}
			buttons = append(buttons, discordgo.Button{
				Label:    truncate(btn.Label, maxLabel),
				Style:    buttonStyle(btn.Event.Action),
				CustomID: id,
			})
			if len(buttons) == maxButtonsPerRow {
				rows = append(rows, discordgo.ActionsRow{Components: buttons})
				buttons = nil
			}
		}
		if len(buttons) > 0 {
			rows = append(rows, discordgo.ActionsRow{Components: buttons})
		}
	}
	return rows
}

func buttonStyle(a domain.Action) discordgo.ButtonStyle {
	switch a {
	case domain.ActionCancel:
		return discordgo.DangerButton
	case domain.ActionFinish, domain.ActionPay:
		return discordgo.SuccessButton
	case domain.ActionToggle, domain.ActionToggleAll:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
