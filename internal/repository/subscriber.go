package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberRepository stores mailing list entries keyed by normalized contact.
type SubscriberRepository interface {
	Upsert(ctx context.Context, s *models.Subscriber) error
	GetByContact(ctx context.Context, normalized string) (*models.Subscriber, error)
	Count(ctx context.Context) (int64, error)
}

type subscriberRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSubscriberRepository creates a new subscriber repository
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db, log: observability.NewRepoLogger("subscribers")}
}

// Upsert inserts s or, when its normalized contact exists, updates the existing row.
func (r *subscriberRepository) Upsert(ctx context.Context, s *models.Subscriber) error {
	defer observability.TrackQuery("upsert", "subscribers")()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_contact"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "contact", "subscribed", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"kind": s.Kind, "subscribed": s.Subscribed})
	return nil
}

func (r *subscriberRepository) GetByContact(ctx context.Context, normalized string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.WithContext(ctx).Where("normalized_contact = ?", normalized).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriberRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Subscriber{}).Count(&n).Error
	return n, err
}
