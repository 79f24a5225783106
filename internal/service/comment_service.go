package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/identity"
	"inkwell/internal/models"
	"inkwell/internal/moderation"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// CommentService manages reader comments on visible posts.
type CommentService struct {
	clock
	comments    repository.CommentRepository
	posts       repository.PostRepository
	moderator   moderation.Moderator
	flags       *featureflags.Manager
	broadcaster notifications.Broadcaster
	invalidator cache.Invalidator
}

// CreateCommentInput is the payload of a new comment.
type CreateCommentInput struct {
	PostID    string
	ParentID  *uint
	Nickname  *string
	Content   string
	Principal identity.Principal
}

// NewCommentService creates a CommentService. Comments are moderated when moderator is
// set and the comment_moderation flag is on for the author. The invalidator drops cached
// post renderings whose comment count changed.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	moderator moderation.Moderator,
	flags *featureflags.Manager,
	broadcaster notifications.Broadcaster,
	invalidator cache.Invalidator,
) *CommentService {
	return &CommentService{
		clock:       newClock(),
		comments:    comments,
		posts:       posts,
		moderator:   moderator,
		flags:       flags,
		broadcaster: broadcaster,
		invalidator: invalidator,
	}
}

// List returns the live comments of a visible post, oldest first, marking the viewer's own.
func (s *CommentService) List(ctx context.Context, postID string, viewer identity.Principal) ([]*models.Comment, error) {
	if _, err := visiblePost(ctx, s.posts, postID, s.now()); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, internalError(ctx, "list comments", err)
	}
	for _, c := range comments {
		c.Own = viewer.Owns(c.Author)
	}
	return comments, nil
}

// Create adds a comment to a visible post. A reply to a reply is attached to the
// top-level comment of the thread.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	ctx, end := observability.StartSpan(ctx, "comment_service", "create", attribute.String("post.id", in.PostID))
	var err error
	defer func() { end(err) }()

	if !in.Principal.HasActor() {
		err = models.NewUnauthorizedError("A client id or session is required to comment")
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		err = models.NewValidationError("Comment cannot be empty")
		return nil, err
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		err = models.NewValidationError("Comment too long (max 1000 characters)")
		return nil, err
	}

	var nickname *string
	if in.Nickname != nil {
		n := strings.TrimSpace(*in.Nickname)
		if utf8.RuneCountInString(n) > models.MaxNicknameLength {
			err = models.NewValidationError("Nickname too long (max 64 characters)")
			return nil, err
		}
		if n != "" {
			nickname = &n
		}
	}

	if s.moderator != nil && s.flags.Enabled(featureflags.CommentModeration, in.Principal.Actor.String()) {
		if res := s.moderator.Moderate(content); !res.Approved {
			observability.ModerationRejections.WithLabelValues("comment", string(res.Reason)).Inc()
			err = models.NewModerationError(string(res.Reason), res.Message)
			return nil, err
		}
	}

	if _, err = visiblePost(ctx, s.posts, in.PostID, s.now()); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		Nickname: nickname,
		Content:  content,
		Author:   *in.Principal.Actor,
	}

	if in.ParentID != nil {
		parent, perr := s.comments.GetByID(ctx, *in.ParentID)
		if perr != nil {
			if repository.IsNotFound(perr) {
				err = models.NewValidationError("Parent comment not found")
			} else {
				err = internalError(ctx, "get parent comment", perr)
			}
			return nil, err
		}
		if parent.PostID != in.PostID {
			err = models.NewValidationError("Parent comment belongs to a different post")
			return nil, err
		}
		top := parent.ID
		if parent.ParentID != nil {
			top = *parent.ParentID
		}
		comment.ParentID = &top
	}

	if cerr := s.comments.Create(ctx, comment); cerr != nil {
		err = internalError(ctx, "create comment", cerr)
		return nil, err
	}
	comment.Own = true
	invalidatePost(ctx, s.invalidator, in.PostID)

	broadcast(ctx, s.broadcaster, notifications.CommentsTopic(in.PostID), notifications.EventCommentCreated, comment)
	return comment, nil
}

// Delete soft-deletes a comment. Admins may delete any comment; otherwise the caller
// must be the stored author.
func (s *CommentService) Delete(ctx context.Context, id uint, p identity.Principal) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Comment", id)
		}
		return internalError(ctx, "get comment", err)
	}
	if err := authorizeDelete(p, comment.Author); err != nil {
		return err
	}

	deleted, err := s.comments.SoftDelete(ctx, comment)
	if err != nil {
		return internalError(ctx, "delete comment", err)
	}
	if !deleted {
		return models.NewNotFoundError("Comment", id)
	}

	invalidatePost(ctx, s.invalidator, comment.PostID)
	broadcast(ctx, s.broadcaster, notifications.CommentsTopic(comment.PostID), notifications.EventCommentDeleted,
		map[string]any{"id": comment.ID, "post_id": comment.PostID})
	return nil
}

// authorizeDelete checks admin first, then the user id, then the client id.
func authorizeDelete(p identity.Principal, author models.Actor) error {
	if p.Admin {
		return nil
	}
	if uid, ok := p.UserID(); ok && author.Kind == models.ActorUser && author.ID == uid {
		return nil
	}
	if p.OwnsAsClient(author) {
		return nil
	}
	return models.NewForbiddenError("You can only delete your own content")
}
