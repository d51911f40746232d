package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidContactMessage = errors.New("invalid contact message")
	ErrContactNotFound       = errors.New("contact message not found")
)

const maxContactMessageLength = 5000

type ContactService interface {
	Submit(ctx context.Context, name, email, subject, message string) (*model.ContactMessage, error)
	List(ctx context.Context, onlyUnhandled bool) ([]model.ContactMessage, error)
	MarkHandled(ctx context.Context, id uint) error
}

type contactService struct {
	contactRepo repository.ContactRepository
}

func NewContactService(contactRepo repository.ContactRepository) ContactService {
	return &contactService{contactRepo: contactRepo}
}

func (s *contactService) Submit(ctx context.Context, name, email, subject, message string) (*model.ContactMessage, error) {
	msg := &model.ContactMessage{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Subject: strings.TrimSpace(subject),
		Message: strings.TrimSpace(message),
	}

	switch {
	case msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "":
		return nil, fmt.Errorf("%w: name, email, subject and message are required", ErrInvalidContactMessage)
	case len(msg.Message) > maxContactMessageLength:
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidContactMessage)
	}

	if err := s.contactRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	logger.Info("Contact message received", map[string]interface{}{
		"contact_id": msg.ID,
		"email":      msg.Email,
		"subject":    msg.Subject,
	})
	return msg, nil
}

func (s *contactService) List(ctx context.Context, onlyUnhandled bool) ([]model.ContactMessage, error) {
	return s.contactRepo.FindAll(ctx, onlyUnhandled)
}

func (s *contactService) MarkHandled(ctx context.Context, id uint) error {
	if err := s.contactRepo.MarkHandled(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}
