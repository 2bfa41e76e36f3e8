package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
)

// GormMessageRepository implements repository.MessageRepository on MySQL.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("gorm DB cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save message: %w", err)
	}
	return nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, messageID uint, reader string, at time.Time) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", messageID, reader).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find message %d: %w", messageID, err)
	}

	// Read timestamp is the only mutable field; first read wins.
	if msg.ReadAt != nil {
		return &msg, nil
	}
	msg.ReadAt = &at
	err = r.db.WithContext(ctx).Model(&msg).Update("read_at", at).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: mark message %d read: %w", messageID, err)
	}
	return &msg, nil
}

func (r *GormMessageRepository) ListConversation(ctx context.Context, a, b string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("sent_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list conversation %s/%s: %w", a, b, err)
	}
	// Reverse to newest-last for the client.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
