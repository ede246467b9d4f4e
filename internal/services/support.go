package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SupportService backs the support bot: guest identities for chats and the
// tickets they open.
type SupportService struct {
	db *gorm.DB
}

func NewSupportService(db *gorm.DB) *SupportService {
	return &SupportService{db: db}
}

// GetOrCreateGuest returns the user bound to telegramID, creating a GUEST
// account on first contact. The bool reports whether the user was created.
func (s *SupportService) GetOrCreateGuest(ctx context.Context, telegramID int64) (*models.User, bool, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// guests never log in through the web API, the password is unguessable
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	tgID := telegramID
	user = models.User{
		Email:        fmt.Sprintf("%d@guest.local", telegramID),
		PasswordHash: string(hash),
		Role:         models.RoleGuest,
		TelegramID:   &tgID,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func (s *SupportService) CreateTicket(ctx context.Context, userID uint, username, message string) (*models.SupportTicket, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", apperrors.ErrValidation)
	}
	ticket := models.SupportTicket{
		UserID:   userID,
		Username: username,
		Message:  message,
		Status:   models.TicketStatusNew,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *SupportService) ListNew(ctx context.Context) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := s.db.WithContext(ctx).Where("status = ?", models.TicketStatusNew).Order("created_at ASC, id ASC").Find(&tickets).Error
	return tickets, err
}

func (s *SupportService) ListByUser(ctx context.Context, userID uint) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&tickets).Error
	return tickets, err
}

// Reply stores the admin's response and returns the ticket with its author so
// the caller can relay the message.
func (s *SupportService) Reply(ctx context.Context, ticketID uint, response string) (*models.SupportTicket, *models.User, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, nil, fmt.Errorf("%w: response is empty", apperrors.ErrValidation)
	}

	var ticket models.SupportTicket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Preload("User").First(&ticket, ticketID).Error; err != nil {
			return notFound(err, "ticket %d", ticketID)
		}
		ticket.Response = response
		ticket.Status = models.TicketStatusAnswered
		return tx.Model(&ticket).Updates(map[string]interface{}{
			"response": response,
			"status":   models.TicketStatusAnswered,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	user := ticket.User
	return &ticket, &user, nil
}
