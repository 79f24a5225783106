package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/identity"
	"inkwell/internal/models"
	"inkwell/internal/moderation"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxChannelLength = 120

// ChatService handles moderated discussion channels.
type ChatService struct {
	clock
	repo        repository.ChatRepository
	moderator   moderation.Moderator
	broadcaster notifications.Broadcaster
}

// SendMessageInput is the payload of a chat message.
type SendMessageInput struct {
	Channel   string
	Nickname  string
	Content   string
	PostID    *string
	Principal identity.Principal
}

// HistoryInput selects a page of channel history.
type HistoryInput struct {
	Channel string
	Limit   int
	Before  *time.Time
	After   *time.Time
	Viewer  identity.Principal
}

// HistoryPage is a chronological slice of a channel. Count is the channel's total of
// live messages, not the page length.
type HistoryPage struct {
	Messages []*models.ChatMessage `json:"messages"`
	Count    int64                 `json:"count"`
	Channel  string                `json:"channel"`
	HasMore  bool                  `json:"has_more"`
}

// NewChatService creates a ChatService.
func NewChatService(repo repository.ChatRepository, moderator moderation.Moderator, broadcaster notifications.Broadcaster) *ChatService {
	if moderator == nil {
		moderator = moderation.NewFilter(moderation.DefaultRules())
	}
	return &ChatService{clock: newClock(), repo: repo, moderator: moderator, broadcaster: broadcaster}
}

func normalizeChannel(raw string) (string, error) {
	ch := strings.TrimSpace(raw)
	if ch == "" {
		return models.DefaultChatChannel, nil
	}
	if len(ch) > maxChannelLength {
		return "", models.NewValidationError("Channel name too long")
	}
	return ch, nil
}

func validateChatNickname(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	count := utf8.RuneCountInString(n)
	if count < models.MinChatNicknameLength || count > models.MaxChatNicknameLength {
		return "", models.NewValidationError("Nickname must be between 2 and 30 characters")
	}
	return n, nil
}

// Send moderates and stores a message, then broadcasts it to the channel.
func (s *ChatService) Send(ctx context.Context, in SendMessageInput) (*models.ChatMessage, error) {
	ctx, end := observability.StartSpan(ctx, "chat_service", "send", attribute.String("chat.channel", in.Channel))
	var err error
	defer func() { end(err) }()

	if !in.Principal.HasActor() {
		err = models.NewUnauthorizedError("A client id or session is required to chat")
		return nil, err
	}
	channel, err := normalizeChannel(in.Channel)
	if err != nil {
		return nil, err
	}
	nickname, err := validateChatNickname(in.Nickname)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if res := s.moderator.Moderate(content); !res.Approved {
		observability.ModerationRejections.WithLabelValues("chat", string(res.Reason)).Inc()
		err = models.NewModerationError(string(res.Reason), res.Message)
		return nil, err
	}

	msg := &models.ChatMessage{
		Channel:  channel,
		Nickname: nickname,
		Content:  content,
		Author:   *in.Principal.Actor,
		PostID:   in.PostID,
	}
	if cerr := s.repo.Create(ctx, msg); cerr != nil {
		err = internalError(ctx, "create chat message", cerr)
		return nil, err
	}
	msg.Own = true

	broadcast(ctx, s.broadcaster, notifications.ChatTopic(channel), notifications.EventChatMessage, msg)
	return msg, nil
}

// History returns up to Limit messages in chronological order.
func (s *ChatService) History(ctx context.Context, in HistoryInput) (*HistoryPage, error) {
	channel, err := normalizeChannel(in.Channel)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = models.DefaultHistoryLimit
	}
	if limit > models.MaxHistoryLimit {
		limit = models.MaxHistoryLimit
	}

	// One extra row tells whether older messages remain.
	rows, err := s.repo.History(ctx, repository.HistoryQuery{
		Channel: channel,
		Limit:   limit + 1,
		Before:  in.Before,
		After:   in.After,
	})
	if err != nil {
		return nil, internalError(ctx, "chat history", err)
	}

	total, err := s.repo.Count(ctx, channel)
	if err != nil {
		return nil, internalError(ctx, "count chat messages", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []*models.ChatMessage{}
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	for _, m := range rows {
		m.Own = in.Viewer.Owns(m.Author)
	}

	return &HistoryPage{Messages: rows, Count: total, Channel: channel, HasMore: hasMore}, nil
}

// Delete soft-deletes a message using the same rules as comments.
func (s *ChatService) Delete(ctx context.Context, id uint, p identity.Principal) error {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Message", id)
		}
		return internalError(ctx, "get chat message", err)
	}
	if err := authorizeDelete(p, msg.Author); err != nil {
		return err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return internalError(ctx, "delete chat message", err)
	}
	if !deleted {
		return models.NewNotFoundError("Message", id)
	}
	broadcast(ctx, s.broadcaster, notifications.ChatTopic(msg.Channel), notifications.EventChatDeleted,
		map[string]any{"id": msg.ID})
	return nil
}

// Heartbeat marks the caller as present in a channel.
func (s *ChatService) Heartbeat(ctx context.Context, channel, nickname string, p identity.Principal) error {
	if !p.HasActor() {
		return models.NewUnauthorizedError("A client id or session is required")
	}
	ch, err := normalizeChannel(channel)
	if err != nil {
		return err
	}
	nick, err := validateChatNickname(nickname)
	if err != nil {
		return err
	}
	presence := &models.ChatPresence{Channel: ch, ClientID: p.Actor.String(), Nickname: nick, LastSeen: s.now()}
	if err := s.repo.UpsertPresence(ctx, presence); err != nil {
		return internalError(ctx, "chat heartbeat", err)
	}
	return nil
}

// Online lists callers seen in the channel within models.PresenceWindow.
func (s *ChatService) Online(ctx context.Context, channel string) ([]*models.ChatPresence, error) {
	ch, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	online, err := s.repo.Online(ctx, ch, s.now().Add(-models.PresenceWindow))
	if err != nil {
		return nil, internalError(ctx, "chat presence", err)
	}
	return online, nil
}

// PrunePresence removes presence rows older than the window.
func (s *ChatService) PrunePresence(ctx context.Context) (int64, error) {
	n, err := s.repo.PrunePresence(ctx, s.now().Add(-models.PresenceWindow))
	if err != nil {
		return 0, internalError(ctx, "prune presence", err)
	}
	return n, nil
}
