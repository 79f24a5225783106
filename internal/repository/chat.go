package repository

import (
	"context"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryQuery selects a page of chat messages by timestamp cursor.
type HistoryQuery struct {
	Channel string
	Limit   int
	Before  *time.Time
	After   *time.Time
}

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	GetByID(ctx context.Context, id uint) (*models.ChatMessage, error)
	History(ctx context.Context, q HistoryQuery) ([]*models.ChatMessage, error)
	Count(ctx context.Context, channel string) (int64, error)
	SoftDelete(ctx context.Context, id uint) (bool, error)
	UpsertPresence(ctx context.Context, p *models.ChatPresence) error
	Online(ctx context.Context, channel string, since time.Time) ([]*models.ChatPresence, error)
	PrunePresence(ctx context.Context, before time.Time) (int64, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db, log: observability.NewRepoLogger("chat_messages")}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	defer observability.TrackQuery("create", "chat_messages")()
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": msg.ID, "channel": msg.Channel})
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns up to q.Limit live messages, newest first.
func (r *chatRepository) History(ctx context.Context, q HistoryQuery) ([]*models.ChatMessage, error) {
	defer observability.TrackQuery("history", "chat_messages")()
	db := r.db.WithContext(ctx).Where("channel = ? AND is_deleted = ?", q.Channel, false)
	if q.Before != nil {
		db = db.Where("created_at < ?", *q.Before)
	}
	if q.After != nil {
		db = db.Where("created_at > ?", *q.After)
	}

	var msgs []*models.ChatMessage
	err := db.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&msgs).Error
	return msgs, err
}

// Count returns the number of live messages in channel.
func (r *chatRepository) Count(ctx context.Context, channel string) (int64, error) {
	defer observability.TrackQuery("count", "chat_messages")()
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("channel = ? AND is_deleted = ?", channel, false).
		Count(&n).Error
	return n, err
}

func (r *chatRepository) SoftDelete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ? AND is_deleted = ?", id, false).
		UpdateColumn("is_deleted", true)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "soft_delete")
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *chatRepository) UpsertPresence(ctx context.Context, p *models.ChatPresence) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "last_seen"}),
	}).Create(p).Error
}

func (r *chatRepository) Online(ctx context.Context, channel string, since time.Time) ([]*models.ChatPresence, error) {
	var out []*models.ChatPresence
	err := r.db.WithContext(ctx).
		Where("channel = ? AND last_seen >= ?", channel, since).
		Order("nickname ASC").
		Find(&out).Error
	return out, err
}

// PrunePresence drops heartbeats older than before.
func (r *chatRepository) PrunePresence(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_seen < ?", before).Delete(&models.ChatPresence{})
	return res.RowsAffected, res.Error
}
