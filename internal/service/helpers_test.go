package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inkwell/internal/featureflags"
	"inkwell/internal/identity"
	"inkwell/internal/models"
	"inkwell/internal/moderation"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source shared by a test's services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingBroadcaster keeps every published event.
type recordingBroadcaster struct {
	mu     sync.Mutex
	topics []string
	events []notifications.Event
}

func (b *recordingBroadcaster) Publish(_ context.Context, topic string, event notifications.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

// recordingInvalidator remembers invalidated post ids.
type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (i *recordingInvalidator) InvalidatePost(_ context.Context, postID string) {
	i.mu.Lock()
	i.ids = append(i.ids, postID)
	i.mu.Unlock()
}

// stack wires every service over one sqlite database.
type stack struct {
	db          *gorm.DB
	clock       *fakeClock
	broadcaster *recordingBroadcaster
	invalidator *recordingInvalidator
	posts       *PostService
	engagement  *EngagementService
	comments    *CommentService
	chat        *ChatService
	subs        *SubscriptionService
	flags       *featureflags.Manager
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewDB(t)
	s := &stack{
		db:          db,
		clock:       newFakeClock(),
		broadcaster: &recordingBroadcaster{},
		invalidator: &recordingInvalidator{},
		flags:       featureflags.NewManager("comment_moderation=on"),
	}

	postRepo := repository.NewPostRepository(db)
	filter := moderation.NewFilter(moderation.DefaultRules())

	s.posts = NewPostService(postRepo, PostServiceConfig{Invalidator: s.invalidator, Broadcaster: s.broadcaster})
	s.posts.SetClock(s.clock.Now)
	s.engagement = NewEngagementService(postRepo, repository.NewLikeRepository(db), repository.NewShareRepository(db),
		s.invalidator)
	s.engagement.SetClock(s.clock.Now)
	s.comments = NewCommentService(repository.NewCommentRepository(db), postRepo, filter, s.flags, s.broadcaster,
		s.invalidator)
	s.comments.SetClock(s.clock.Now)
	s.chat = NewChatService(repository.NewChatRepository(db), filter, s.broadcaster)
	s.chat.SetClock(s.clock.Now)
	s.subs = NewSubscriptionService(repository.NewSubscriberRepository(db), s.flags)
	return s
}

func client(id string) identity.Principal {
	a := models.ClientActor(id)
	return identity.Principal{Actor: &a}
}

func user(id string) identity.Principal {
	a := models.UserActor(id)
	return identity.Principal{Actor: &a}
}

var admin = identity.Principal{Admin: true}

func ptr[T any](v T) *T { return &v }

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
