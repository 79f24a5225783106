package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Listing defaults.
const (
	DefaultPageSize = 20
	maxTitleLength  = 300
)

// PostService owns the post publication lifecycle.
type PostService struct {
	clock
	posts       repository.PostRepository
	cache       *cache.Store
	cacheTTL    time.Duration
	invalidator cache.Invalidator
	broadcaster notifications.Broadcaster
}

// PostServiceConfig wires the optional collaborators of PostService.
type PostServiceConfig struct {
	Cache       *cache.Store
	CacheTTL    time.Duration
	Invalidator cache.Invalidator
	Broadcaster notifications.Broadcaster
}

// CreatePostInput is the payload of a new post.
type CreatePostInput struct {
	// ID overrides the slug derived from Title, e.g. to accept a suggested id.
	ID         string
	Title      string
	Excerpt    string
	Content    string
	Tags       []string
	AuthorName string
	CoverImage string
	Status     string
	PublishAt  *time.Time
}

// UpdatePostInput is a partial patch: nil fields are left untouched.
type UpdatePostInput struct {
	Title      *string
	Excerpt    *string
	Content    *string
	Tags       *[]string
	AuthorName *string
	CoverImage *string
	Status     *string
	PublishAt  *time.Time
}

// NewPostService creates a PostService.
func NewPostService(posts repository.PostRepository, cfg PostServiceConfig) *PostService {
	ttl := cfg.CacheTTL
	if ttl <= 0 || ttl > cache.PostTTL {
		ttl = cache.PostTTL
	}
	return &PostService{
		clock:       newClock(),
		posts:       posts,
		cache:       cfg.Cache,
		cacheTTL:    ttl,
		invalidator: cfg.Invalidator,
		broadcaster: cfg.Broadcaster,
	}
}

func parseStatus(raw string) (models.PostStatus, error) {
	switch models.PostStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", models.PostStatusDraft:
		return models.PostStatusDraft, nil
	case models.PostStatusPublished:
		return models.PostStatusPublished, nil
	default:
		return "", models.NewValidationError("status must be draft or published")
	}
}

func requireText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", models.NewValidationError(field + " is required")
	}
	return v, nil
}

// Create stores a new post. The id is the slug of the title; a taken id is a conflict
// that carries a suggested alternative and never overwrites the existing post.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, end := observability.StartSpan(ctx, "post_service", "create")
	var err error
	defer func() { end(err) }()

	now := s.now()
	post := &models.Post{}

	if post.Title, err = requireText("Title", in.Title); err != nil {
		return nil, err
	}
	if len(post.Title) > maxTitleLength {
		err = models.NewValidationError("Title too long (max 300 characters)")
		return nil, err
	}
	if post.Excerpt, err = requireText("Excerpt", in.Excerpt); err != nil {
		return nil, err
	}
	if post.Content, err = requireText("Content", in.Content); err != nil {
		return nil, err
	}
	if post.Status, err = parseStatus(in.Status); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = validation.Slugify(post.Title)
		if id == "" {
			err = models.NewValidationError("Title must contain letters or numbers")
			return nil, err
		}
	} else if verr := validation.ValidatePostID(id); verr != nil {
		err = models.NewValidationError("id must be a lowercase slug")
		return nil, err
	}
	if validation.IsReservedPostID(id) {
		err = models.NewConflictError("This post id is reserved", validation.SuggestSlug(id, now))
		return nil, err
	}
	post.ID = id

	post.Tags = models.CanonicalTags(in.Tags)
	post.ReadTime = models.ReadTime(post.Content)
	post.AuthorName = strings.TrimSpace(in.AuthorName)
	if post.AuthorName == "" {
		post.AuthorName = models.DefaultAuthorName
	}
	post.CoverImage = strings.TrimSpace(in.CoverImage)

	if post.Status == models.PostStatusPublished {
		if in.PublishAt == nil {
			err = models.NewValidationError("publish_at is required when status is published")
			return nil, err
		}
		if perr := post.MarkPublished(now, in.PublishAt); perr != nil {
			err = models.NewValidationError(perr.Error())
			return nil, err
		}
	} else {
		post.MarkDraft()
	}

	exists, qerr := s.posts.Exists(ctx, id)
	if qerr != nil {
		err = internalError(ctx, "post exists", qerr)
		return nil, err
	}
	if exists {
		err = conflictFor(id, now)
		return nil, err
	}

	if cerr := s.posts.Create(ctx, post); cerr != nil {
		if repository.IsDuplicateKey(cerr) {
			err = conflictFor(id, now)
			return nil, err
		}
		err = internalError(ctx, "create post", cerr)
		return nil, err
	}

	s.afterChange(ctx, post, false, now)
	return post, nil
}

func conflictFor(id string, now time.Time) error {
	return models.NewConflictError("A post with this id already exists", validation.SuggestSlug(id, now))
}

// Update applies a partial patch to a post.
func (s *PostService) Update(ctx context.Context, id string, in UpdatePostInput) (*models.Post, error) {
	ctx, end := observability.StartSpan(ctx, "post_service", "update", attribute.String("post.id", id))
	var err error
	defer func() { end(err) }()

	now := s.now()
	post, gerr := s.posts.GetByID(ctx, id)
	if gerr != nil {
		if repository.IsNotFound(gerr) {
			err = models.NewNotFoundError("Post", id)
		} else {
			err = internalError(ctx, "get post", gerr)
		}
		return nil, err
	}
	wasVisible := post.IsPubliclyVisible(now)

	if err = applyPatch(post, in); err != nil {
		return nil, err
	}
	if err = applyStatusPatch(post, in, now); err != nil {
		return nil, err
	}

	if uerr := s.posts.Update(ctx, post); uerr != nil {
		err = internalError(ctx, "update post", uerr)
		return nil, err
	}

	s.afterChange(ctx, post, wasVisible, now)
	return post, nil
}

func applyPatch(post *models.Post, in UpdatePostInput) error {
	var err error
	if in.Title != nil {
		if post.Title, err = requireText("Title", *in.Title); err != nil {
			return err
		}
		if len(post.Title) > maxTitleLength {
			return models.NewValidationError("Title too long (max 300 characters)")
		}
	}
	if in.Excerpt != nil {
		if post.Excerpt, err = requireText("Excerpt", *in.Excerpt); err != nil {
			return err
		}
	}
	if in.Content != nil {
		if post.Content, err = requireText("Content", *in.Content); err != nil {
			return err
		}
		post.ReadTime = models.ReadTime(post.Content)
	}
	if in.Tags != nil {
		post.Tags = models.CanonicalTags(*in.Tags)
	}
	if in.AuthorName != nil {
		post.AuthorName = strings.TrimSpace(*in.AuthorName)
		if post.AuthorName == "" {
			post.AuthorName = models.DefaultAuthorName
		}
	}
	if in.CoverImage != nil {
		post.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	return nil
}

// applyStatusPatch runs the lifecycle transition a patch asks for. Editing a live post
// without touching status or publish_at leaves every lifecycle field alone.
func applyStatusPatch(post *models.Post, in UpdatePostInput, now time.Time) error {
	target := post.Status
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return err
		}
		target = status
	}

	switch {
	case target == models.PostStatusDraft:
		if in.PublishAt != nil {
			return models.NewValidationError("publish_at requires status published")
		}
		if post.Status != models.PostStatusDraft {
			post.MarkDraft()
		}
		return nil
	case in.PublishAt != nil:
		if err := post.MarkPublished(now, in.PublishAt); err != nil {
			return models.NewValidationError(err.Error())
		}
		return nil
	case post.Status == models.PostStatusDraft:
		// Publishing a draft without a time makes it live now.
		return post.MarkPublished(now, nil)
	default:
		// Already scheduled or live: keep the existing schedule.
		return nil
	}
}

// afterChange invalidates cached renderings and announces posts that just went live.
func (s *PostService) afterChange(ctx context.Context, post *models.Post, wasVisible bool, now time.Time) {
	invalidatePost(ctx, s.invalidator, post.ID)
	if !wasVisible && post.IsPubliclyVisible(now) {
		broadcast(ctx, s.broadcaster, notifications.BroadcastTopic, notifications.EventPostPublished,
			map[string]string{"id": post.ID, "title": post.Title})
	}
}

// Delete hard-deletes a post together with its comments, likes and shares.
func (s *PostService) Delete(ctx context.Context, id string) error {
	deleted, err := s.posts.Delete(ctx, id)
	if err != nil {
		return internalError(ctx, "delete post", err)
	}
	if !deleted {
		return models.NewNotFoundError("Post", id)
	}
	invalidatePost(ctx, s.invalidator, id)
	return nil
}

// Publish publishes a post now, or schedules it when publishAt is in the future.
func (s *PostService) Publish(ctx context.Context, id string, publishAt *time.Time) (*models.Post, error) {
	status := string(models.PostStatusPublished)
	return s.Update(ctx, id, UpdatePostInput{Status: &status, PublishAt: publishAt})
}

// Unpublish moves a post back to draft and clears its schedule.
func (s *PostService) Unpublish(ctx context.Context, id string) (*models.Post, error) {
	status := string(models.PostStatusDraft)
	return s.Update(ctx, id, UpdatePostInput{Status: &status})
}

// Sweep publishes every scheduled post whose time has come and returns the ids this
// call published. Safe to run repeatedly and concurrently; nothing due is not an error.
func (s *PostService) Sweep(ctx context.Context) ([]string, error) {
	ctx, end := observability.StartSpan(ctx, "post_service", "sweep")
	var err error
	defer func() { end(err) }()

	now := s.now()
	ids, qerr := s.posts.DueIDs(ctx, now)
	if qerr != nil {
		observability.SweepRuns.WithLabelValues("error").Inc()
		err = internalError(ctx, "due posts", qerr)
		return nil, err
	}

	published := make([]string, 0, len(ids))
	var failures []error
	for _, id := range ids {
		ok, uerr := s.posts.MarkPublishedIfDue(ctx, id, now)
		if uerr != nil {
			failures = append(failures, uerr)
			continue
		}
		if !ok {
			continue
		}
		published = append(published, id)
		invalidatePost(ctx, s.invalidator, id)
		broadcast(ctx, s.broadcaster, notifications.BroadcastTopic, notifications.EventPostPublished,
			map[string]string{"id": id})
	}

	observability.PostsPublished.Add(float64(len(published)))
	middleware.Logger.InfoContext(ctx, "publish sweep finished",
		slog.Int("due", len(ids)), slog.Int("published", len(published)))

	if len(failures) > 0 {
		observability.SweepRuns.WithLabelValues("partial").Inc()
		err = internalError(ctx, "publish due post", errors.Join(failures...))
		return published, err
	}
	observability.SweepRuns.WithLabelValues("ok").Inc()
	return published, nil
}

// GetPublic returns a post only when it is publicly visible now. Visible posts are
// cached; the visibility check runs again on every cache hit.
func (s *PostService) GetPublic(ctx context.Context, id string) (*models.Post, error) {
	now := s.now()
	key := cache.PostKey(id)

	var cached models.Post
	if s.cache.GetJSON(ctx, key, &cached) && cached.IsPubliclyVisible(now) {
		return &cached, nil
	}

	post, err := visiblePost(ctx, s.posts, id, now)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, post, s.cacheTTL)
	return post, nil
}

// GetForAdmin returns any post regardless of its state.
func (s *PostService) GetForAdmin(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, internalError(ctx, "get post", err)
	}
	return post, nil
}

// ListPublic lists visible posts, newest first. A cached page never outlives the next
// scheduled publish time, so a post going live shows up without waiting for the sweep.
func (s *PostService) ListPublic(ctx context.Context, limit, offset int, tag string) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	tag = strings.TrimSpace(tag)
	key := cache.PostListKey(limit, offset, tag)
	now := s.now()

	var cached []*models.Post
	if s.cache.GetJSON(ctx, key, &cached) {
		return filterVisible(cached, now), nil
	}

	posts, err := s.posts.ListVisible(ctx, now, limit, offset, tag)
	if err != nil {
		return nil, internalError(ctx, "list posts", err)
	}
	if s.cache.Enabled() {
		s.cache.SetJSON(ctx, key, posts, s.listTTL(ctx, now))
	}
	return posts, nil
}

// listTTL is PostListTTL cut short by the next scheduled publish. Zero skips caching.
func (s *PostService) listTTL(ctx context.Context, now time.Time) time.Duration {
	next, err := s.posts.NextPublishAt(ctx, now)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "next publish lookup failed", slog.String("error", err.Error()))
		return 0
	}
	if next != nil && next.Sub(now) < cache.PostListTTL {
		return next.Sub(now)
	}
	return cache.PostListTTL
}

func filterVisible(posts []*models.Post, now time.Time) []*models.Post {
	out := posts[:0]
	for _, p := range posts {
		if p.IsPubliclyVisible(now) {
			out = append(out, p)
		}
	}
	return out
}

// ListAll lists every post for the admin dashboard.
func (s *PostService) ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	posts, err := s.posts.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, internalError(ctx, "list all posts", err)
	}
	return posts, nil
}
