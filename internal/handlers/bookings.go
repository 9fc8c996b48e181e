package handlers

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/chachabrian/chefbook-backend/internal/middleware"
	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/chachabrian/chefbook-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	ProviderID       uint        `json:"providerId"`
	MealType         string      `json:"mealType"`
	GuestCount       int         `json:"guestCount"`
	Date             string      `json:"date"`
	Time             string      `json:"time"`
	Cuisine          string      `json:"cuisine"`
	Address          string      `json:"address"`
	TotalAmount      json.Number `json:"totalAmount" binding:"required"`
	PaymentReference string      `json:"paymentReference"`
}

// CreateBooking verifies the client's payment and opens a booking with a chef
func CreateBooking(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}
		if _, isRequester := principal.(services.Requester); !isRequester {
			respondError(c, services.ErrForbidden)
			return
		}

		var input createBookingRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		amount, err := utils.ParseMinorUnits(input.TotalAmount.String())
		if err != nil {
			c.JSON(400, gin.H{"error": "totalAmount must be a decimal amount with at most two decimal places"})
			return
		}

		booking, err := svc.Create(c.Request.Context(), principal, services.CreateBookingInput{
			ProviderID:       input.ProviderID,
			MealType:         input.MealType,
			GuestCount:       input.GuestCount,
			Date:             input.Date,
			Time:             input.Time,
			Cuisine:          input.Cuisine,
			Address:          input.Address,
			TotalAmount:      amount,
			PaymentReference: input.PaymentReference,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, bookingView(booking))
	}
}

// GetRequesterBookings lists the client's bookings, newest first
func GetRequesterBookings(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		bookings, err := svc.ListForRequester(c.Request.Context(), principal)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, bookingViews(bookings))
	}
}

// GetProviderBookings lists the chef's bookings, newest first
func GetProviderBookings(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		bookings, err := svc.ListForProvider(c.Request.Context(), principal)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, bookingViews(bookings))
	}
}

func GetBooking(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		booking, err := svc.Get(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, bookingView(booking))
	}
}

func AcceptBooking(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		booking, err := svc.Accept(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, bookingView(booking))
	}
}

// DeclineBooking takes an optional {"reason": "..."} body
func DeclineBooking(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := svc.Decline(c.Request.Context(), principal, c.Param("id"), input.Reason)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, bookingView(booking))
	}
}

func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var paymentErr *services.PaymentError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(400, gin.H{"error": validationErr.Error(), "details": validationErr.Problems})
	case errors.As(err, &paymentErr):
		c.JSON(402, gin.H{"error": paymentErr.Error(), "code": "payment_failed"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFoundOrAlreadyHandled):
		c.JSON(404, gin.H{"error": "Booking not found or already handled"})
	default:
		_ = c.Error(err)
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}

func bookingViews(bookings []models.Booking) []gin.H {
	views := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		views = append(views, bookingView(&bookings[i]))
	}
	return views
}

func bookingView(b *models.Booking) gin.H {
	response := gin.H{
		"id":               b.ID,
		"requesterId":      b.RequesterID,
		"providerId":       b.ProviderID,
		"status":           b.Status,
		"mealType":         b.MealType,
		"guestCount":       b.GuestCount,
		"date":             b.Date,
		"time":             b.Time,
		"cuisine":          b.Cuisine,
		"address":          b.Address,
		"totalAmount":      json.Number(utils.FormatMinorUnits(b.TotalAmount)),
		"currency":         b.Currency,
		"paymentReference": b.PaymentReference,
		"createdAt":        b.CreatedAt,
		"updatedAt":        b.UpdatedAt,
	}
	if b.DeclineReason != "" {
		response["declineReason"] = b.DeclineReason
	}

	if b.Requester != nil {
		response["requester"] = gin.H{
			"id":          b.Requester.ID,
			"username":    b.Requester.Username,
			"phoneNumber": b.Requester.PhoneNumber,
		}
	}
	if b.Provider != nil {
		response["provider"] = gin.H{
			"id":          b.Provider.ID,
			"username":    b.Provider.Username,
			"phoneNumber": b.Provider.PhoneNumber,
		}
	}
	return response
}
