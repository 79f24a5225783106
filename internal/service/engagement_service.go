package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/identity"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultLikeGuard is how long a fresh like survives a repeated toggle. Two toggles
// racing inside this window settle on liked instead of cancelling each other out.
const DefaultLikeGuard = 2 * time.Second

// EngagementService records likes and shares on visible posts.
type EngagementService struct {
	clock
	posts       repository.PostRepository
	likes       repository.LikeRepository
	shares      repository.ShareRepository
	invalidator cache.Invalidator
	likeGuard   time.Duration
}

// LikeState is the caller's like status together with the post's total.
type LikeState struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// ShareInput records one share of a post.
type ShareInput struct {
	PostID    string
	Channel   string
	Principal identity.Principal
	// IP is hashed before it is stored.
	IP string
}

// NewEngagementService creates an EngagementService. The invalidator, when set, drops
// cached post renderings whose counters a like or share changed.
func NewEngagementService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	shares repository.ShareRepository,
	invalidator cache.Invalidator,
) *EngagementService {
	return &EngagementService{
		clock:       newClock(),
		posts:       posts,
		likes:       likes,
		shares:      shares,
		invalidator: invalidator,
		likeGuard:   DefaultLikeGuard,
	}
}

// SetLikeGuard overrides DefaultLikeGuard. Zero disables the guard.
func (s *EngagementService) SetLikeGuard(d time.Duration) {
	if d >= 0 {
		s.likeGuard = d
	}
}

// ToggleLike flips the caller's like on a visible post and returns the resulting state.
func (s *EngagementService) ToggleLike(ctx context.Context, postID string, p identity.Principal) (*LikeState, error) {
	ctx, end := observability.StartSpan(ctx, "engagement_service", "toggle_like", attribute.String("post.id", postID))
	var err error
	defer func() { end(err) }()

	if !p.HasActor() {
		err = models.NewUnauthorizedError("A client id or session is required to like posts")
		return nil, err
	}
	now := s.now()
	if _, err = visiblePost(ctx, s.posts, postID, now); err != nil {
		return nil, err
	}

	res, terr := s.likes.Toggle(ctx, postID, *p.Actor, now, s.likeGuard)
	if terr != nil {
		err = internalError(ctx, "toggle like", terr)
		return nil, err
	}

	switch {
	case !res.Changed:
		observability.LikeToggles.WithLabelValues("noop").Inc()
	case res.Liked:
		observability.LikeToggles.WithLabelValues("liked").Inc()
	default:
		observability.LikeToggles.WithLabelValues("unliked").Inc()
	}
	if res.Changed {
		invalidatePost(ctx, s.invalidator, postID)
	}
	return &LikeState{Liked: res.Liked, LikesCount: res.LikesCount}, nil
}

// LikeStatus reports whether the caller likes a visible post. Callers without an
// actor never like anything.
func (s *EngagementService) LikeStatus(ctx context.Context, postID string, p identity.Principal) (*LikeState, error) {
	post, err := visiblePost(ctx, s.posts, postID, s.now())
	if err != nil {
		return nil, err
	}
	state := &LikeState{LikesCount: post.LikesCount}
	if !p.HasActor() {
		return state, nil
	}
	liked, err := s.likes.Exists(ctx, postID, *p.Actor)
	if err != nil {
		return nil, internalError(ctx, "like status", err)
	}
	state.Liked = liked
	return state, nil
}

// LogShare appends a share event and returns the post's new share total.
func (s *EngagementService) LogShare(ctx context.Context, in ShareInput) (int, error) {
	channel, ok := models.ParseShareChannel(in.Channel)
	if !ok {
		return 0, models.NewValidationError("Unsupported share channel")
	}
	if _, err := visiblePost(ctx, s.posts, in.PostID, s.now()); err != nil {
		return 0, err
	}

	event := &models.ShareEvent{PostID: in.PostID, Channel: channel, IPHash: hashIP(in.IP)}
	event.SetActor(in.Principal.Actor)

	total, err := s.shares.Log(ctx, event)
	if err != nil {
		return 0, internalError(ctx, "log share", err)
	}
	observability.SharesLogged.WithLabelValues(string(channel)).Inc()
	invalidatePost(ctx, s.invalidator, in.PostID)
	return total, nil
}

func hashIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
