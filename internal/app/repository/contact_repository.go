package repository

import (
	"context"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"gorm.io/gorm"
)

type ContactRepository interface {
	Create(ctx context.Context, message *model.ContactMessage) error
	FindAll(ctx context.Context, onlyUnhandled bool) ([]model.ContactMessage, error)
	MarkHandled(ctx context.Context, id uint) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, message *model.ContactMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		logger.Error("Failed to create contact message in database", err, map[string]interface{}{
			"email":   message.Email,
			"subject": message.Subject,
		})
		return err
	}

	logger.Debug("Contact message created in database", map[string]interface{}{
		"contact_id": message.ID,
		"email":      message.Email,
	})
	return nil
}

// FindAll returns messages newest first
func (r *contactRepository) FindAll(ctx context.Context, onlyUnhandled bool) ([]model.ContactMessage, error) {
	query := r.db.WithContext(ctx).Model(&model.ContactMessage{})
	if onlyUnhandled {
		query = query.Where("handled = ?", false)
	}

	var messages []model.ContactMessage
	if err := query.Order("created_at DESC").Order("id DESC").Find(&messages).Error; err != nil {
		logger.Error("Failed to list contact messages", err, nil)
		return nil, err
	}
	return messages, nil
}

func (r *contactRepository) MarkHandled(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.ContactMessage{}).
		Where("id = ?", id).
		Update("handled", true)
	if result.Error != nil {
		logger.Error("Failed to mark contact message handled", result.Error, map[string]interface{}{
			"contact_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
