package service

import (
	"context"
	"strconv"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// SubscriptionService manages the mailing list.
type SubscriptionService struct {
	repo  repository.SubscriberRepository
	flags *featureflags.Manager
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(repo repository.SubscriberRepository, flags *featureflags.Manager) *SubscriptionService {
	return &SubscriptionService{repo: repo, flags: flags}
}

// Subscribe records the subscription state of a contact. Repeating a call is idempotent.
func (s *SubscriptionService) Subscribe(ctx context.Context, contact string, subscribed bool) (*models.Subscriber, error) {
	c, err := validation.ClassifyContact(contact)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if c.Kind == validation.KindPhone && !s.flags.Enabled(featureflags.PhoneSubscriptions, "") {
		return nil, models.NewFeatureUnavailableError("Phone subscriptions are not available yet")
	}

	sub := &models.Subscriber{
		Kind:              models.ContactKind(c.Kind),
		Contact:           c.Raw,
		NormalizedContact: c.Normalized,
		Subscribed:        subscribed,
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, models.NewUpstreamError("Failed to update subscription", err)
	}
	observability.Subscriptions.WithLabelValues(string(sub.Kind), strconv.FormatBool(subscribed)).Inc()
	return sub, nil
}
