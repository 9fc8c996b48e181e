package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFoundOrAlreadyHandled covers a missing booking, a booking owned by
// another chef and a booking that already left pending. Callers must not be
// able to tell these apart.
var ErrNotFoundOrAlreadyHandled = errors.New("booking not found or already handled")

// BookingStore owns persisted bookings.
type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

// Create inserts a new pending booking and assigns its ID.
func (s *BookingStore) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Status = models.BookingStatusPending
	b.DeclineReason = ""
	if err := s.db.WithContext(ctx).Omit("Requester", "Provider").Create(b).Error; err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID loads a booking with both parties.
func (s *BookingStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Preload("Provider").
		First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFoundOrAlreadyHandled
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindForParty loads a booking only when userID is its requester or provider.
func (s *BookingStore) FindForParty(ctx context.Context, id string, userID uint) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Preload("Provider").
		Where("id = ? AND (requester_id = ? OR provider_id = ?)", id, userID, userID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFoundOrAlreadyHandled
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByRequester returns the client's bookings, newest first, with the chef attached.
func (s *BookingStore) ListByRequester(ctx context.Context, requesterID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Preload("Provider").
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// ListByProvider returns the chef's bookings, newest first, with the client attached.
func (s *BookingStore) ListByProvider(ctx context.Context, providerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Preload("Requester").
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// Accept moves a pending booking owned by providerID to accepted.
func (s *BookingStore) Accept(ctx context.Context, id string, providerID uint) (*models.Booking, error) {
	return s.transition(ctx, id, providerID, models.BookingStatusAccepted, map[string]interface{}{
		"status": models.BookingStatusAccepted,
	})
}

// Decline moves a pending booking owned by providerID to declined and records the reason.
func (s *BookingStore) Decline(ctx context.Context, id string, providerID uint, reason string) (*models.Booking, error) {
	return s.transition(ctx, id, providerID, models.BookingStatusDeclined, map[string]interface{}{
		"status":         models.BookingStatusDeclined,
		"decline_reason": reason,
	})
}

// transition is a single conditional UPDATE: the precondition on owner and
// status is evaluated by the database at write time, so of any number of
// concurrent transitions on one booking at most one affects a row.
func (s *BookingStore) transition(ctx context.Context, id string, providerID uint, to models.BookingStatus, updates map[string]interface{}) (*models.Booking, error) {
	if !models.BookingStatusPending.CanTransition(to) {
		return nil, fmt.Errorf("transition to %s not allowed", to)
	}

	var b models.Booking
	res := s.db.WithContext(ctx).
		Model(&b).
		Clauses(clause.Returning{}).
		Where("id = ? AND provider_id = ? AND status = ?", id, providerID, models.BookingStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update booking %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFoundOrAlreadyHandled
	}

	// The row is committed. A failed party read leaves Requester and Provider nil.
	s.loadParties(ctx, &b)
	return &b, nil
}

func (s *BookingStore) loadParties(ctx context.Context, b *models.Booking) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", []uint{b.RequesterID, b.ProviderID}).Find(&users).Error; err != nil {
		return
	}
	for i := range users {
		switch users[i].ID {
		case b.RequesterID:
			b.Requester = &users[i]
		case b.ProviderID:
			b.Provider = &users[i]
		}
	}
}

// UserStore reads principal rows and keeps their push tokens.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindUser returns gorm.ErrRecordNotFound when no account has the id.
func (s *UserStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetFCMToken stores the device token push messages go to. An empty token
// turns push off for the account.
func (s *UserStore) SetFCMToken(ctx context.Context, id uint, token string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token)
	if res.Error != nil {
		return fmt.Errorf("update fcm token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
