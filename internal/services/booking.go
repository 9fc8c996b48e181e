package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

// BookingRepository is the persistence the booking service needs.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	FindForParty(ctx context.Context, id string, userID uint) (*models.Booking, error)
	ListByRequester(ctx context.Context, requesterID uint) ([]models.Booking, error)
	ListByProvider(ctx context.Context, providerID uint) ([]models.Booking, error)
	Accept(ctx context.Context, id string, providerID uint) (*models.Booking, error)
	Decline(ctx context.Context, id string, providerID uint, reason string) (*models.Booking, error)
}

type PaymentVerifier interface {
	Verify(ctx context.Context, reference string, expected int64) Verification
}

// Dispatcher takes side effects off the request path.
type Dispatcher interface {
	Notify(msg Notification) bool
	Publish(e BookingEvent) bool
}

// CreateBookingInput is a client's booking request. TotalAmount is in minor units.
type CreateBookingInput struct {
	ProviderID       uint   `json:"providerId" validate:"required"`
	MealType         string `json:"mealType" validate:"required"`
	GuestCount       int    `json:"guestCount" validate:"min=1"`
	Date             string `json:"date" validate:"required"`
	Time             string `json:"time" validate:"required"`
	Cuisine          string `json:"cuisine" validate:"required"`
	Address          string `json:"address" validate:"required"`
	TotalAmount      int64  `json:"totalAmount" validate:"gt=0"`
	PaymentReference string `json:"paymentReference" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type BookingService struct {
	bookings BookingRepository
	users    UserFinder
	payments PaymentVerifier
	notifier Dispatcher
	currency string
	log      logrus.FieldLogger
}

func NewBookingService(bookings BookingRepository, users UserFinder, payments PaymentVerifier, notifier Dispatcher, currency string, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		bookings: bookings,
		users:    users,
		payments: payments,
		notifier: notifier,
		currency: strings.ToLower(currency),
		log:      log,
	}
}

// Create verifies the payment and stores a pending booking for the calling client.
func (s *BookingService) Create(ctx context.Context, caller Principal, in CreateBookingInput) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()

	requester, ok := caller.(Requester)
	if !ok {
		return nil, ErrForbidden
	}

	in = normalizeInput(in)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	provider, err := s.users.FindUser(ctx, in.ProviderID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && provider.UserType != models.UserTypeChef) {
		return nil, &ValidationError{Problems: []string{"providerId does not reference a chef"}}
	}
	if err != nil {
		return nil, fmt.Errorf("load provider %d: %w", in.ProviderID, err)
	}

	log := s.log.WithFields(logrus.Fields{
		"requester_id": requester.ID,
		"provider_id":  provider.ID,
		"payment_ref":  in.PaymentReference,
	})

	verification := s.payments.Verify(ctx, in.PaymentReference, in.TotalAmount)
	if !verification.Valid {
		span.SetStatus(codes.Error, "payment rejected")
		return nil, &PaymentError{Reference: in.PaymentReference, Reason: verification.Reason}
	}

	booking := &models.Booking{
		RequesterID:      requester.ID,
		ProviderID:       provider.ID,
		MealType:         in.MealType,
		GuestCount:       in.GuestCount,
		Date:             in.Date,
		Time:             in.Time,
		Cuisine:          in.Cuisine,
		Address:          in.Address,
		TotalAmount:      in.TotalAmount,
		Currency:         s.currency,
		PaymentReference: in.PaymentReference,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// The payment is captured at this point; keep enough to reconcile by hand.
		log.WithError(err).Error("booking not stored after payment capture")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", booking.ID))
	log.WithField("booking_id", booking.ID).Info("booking created")

	booking.Requester = &models.User{Username: requester.Name}
	booking.Requester.ID = requester.ID
	booking.Provider = provider

	s.notifier.Notify(Notification{
		RecipientID: provider.ID,
		Token:       provider.FCMToken,
		Title:       "New Booking Request",
		Body: fmt.Sprintf("%s requested %s for %d guests on %s at %s",
			requester.Name, booking.MealType, booking.GuestCount, booking.Date, booking.Time),
		Data: map[string]string{
			"type":          "booking_request",
			"bookingId":     booking.ID,
			"requesterName": requester.Name,
			"mealType":      booking.MealType,
			"guestCount":    strconv.Itoa(booking.GuestCount),
			"date":          booking.Date,
			"time":          booking.Time,
		},
	})
	s.notifier.Publish(bookingEvent(EventBookingCreated, booking))

	return booking, nil
}

// ListForRequester returns the calling client's bookings, newest first.
func (s *BookingService) ListForRequester(ctx context.Context, caller Principal) ([]models.Booking, error) {
	requester, ok := caller.(Requester)
	if !ok {
		return nil, ErrForbidden
	}
	return s.bookings.ListByRequester(ctx, requester.ID)
}

// ListForProvider returns the calling chef's bookings, newest first.
func (s *BookingService) ListForProvider(ctx context.Context, caller Principal) ([]models.Booking, error) {
	provider, ok := caller.(Provider)
	if !ok {
		return nil, ErrForbidden
	}
	return s.bookings.ListByProvider(ctx, provider.ID)
}

// Get returns a booking the caller is a party to.
func (s *BookingService) Get(ctx context.Context, caller Principal, id string) (*models.Booking, error) {
	return s.bookings.FindForParty(ctx, id, caller.PrincipalID())
}

// Accept lets the booking's chef take a pending booking.
func (s *BookingService) Accept(ctx context.Context, caller Principal, id string) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.accept")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id))

	provider, ok := caller.(Provider)
	if !ok {
		return nil, ErrForbidden
	}

	booking, err := s.bookings.Accept(ctx, id, provider.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "provider_id": provider.ID}).Info("booking accepted")

	s.notifyRequester(booking, Notification{
		Title: "Booking Accepted!",
		Body: fmt.Sprintf("%s accepted your %s booking for %d guests on %s at %s",
			provider.Name, booking.MealType, booking.GuestCount, booking.Date, booking.Time),
		Data: map[string]string{
			"type":         "booking_accepted",
			"bookingId":    booking.ID,
			"providerName": provider.Name,
			"mealType":     booking.MealType,
			"guestCount":   strconv.Itoa(booking.GuestCount),
			"date":         booking.Date,
			"time":         booking.Time,
		},
	})
	s.notifier.Publish(bookingEvent(EventBookingAccepted, booking))

	return booking, nil
}

// Decline lets the booking's chef turn down a pending booking.
func (s *BookingService) Decline(ctx context.Context, caller Principal, id, reason string) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.decline")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id))

	provider, ok := caller.(Provider)
	if !ok {
		return nil, ErrForbidden
	}

	reason = strings.TrimSpace(reason)
	booking, err := s.bookings.Decline(ctx, id, provider.ID, reason)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "provider_id": provider.ID}).Info("booking declined")

	body := fmt.Sprintf("%s declined your %s booking on %s", provider.Name, booking.MealType, booking.Date)
	if reason != "" {
		body += ". Reason: " + reason
	}
	s.notifyRequester(booking, Notification{
		Title: "Booking Declined",
		Body:  body,
		Data: map[string]string{
			"type":         "booking_declined",
			"bookingId":    booking.ID,
			"providerName": provider.Name,
			"reason":       reason,
		},
	})
	s.notifier.Publish(bookingEvent(EventBookingDeclined, booking))

	return booking, nil
}

func (s *BookingService) notifyRequester(b *models.Booking, msg Notification) {
	msg.RecipientID = b.RequesterID
	if b.Requester != nil {
		msg.Token = b.Requester.FCMToken
	}
	s.notifier.Notify(msg)
}

func bookingEvent(eventType string, b *models.Booking) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		RequesterID: b.RequesterID,
		ProviderID:  b.ProviderID,
		Status:      string(b.Status),
		Reason:      b.DeclineReason,
	}
}

func normalizeInput(in CreateBookingInput) CreateBookingInput {
	in.MealType = strings.TrimSpace(in.MealType)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Cuisine = strings.TrimSpace(in.Cuisine)
	in.Address = strings.TrimSpace(in.Address)
	in.PaymentReference = strings.TrimSpace(in.PaymentReference)
	return in
}

// validateInput reports every failed rule on in as a ValidationError.
func validateInput(in CreateBookingInput) error {
	err := validate.Struct(in)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be positive"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
