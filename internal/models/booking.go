package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCompleted BookingStatus = "completed"
)

// transitions lists every status change the booking endpoints may apply.
// Nothing moves a booking into completed yet.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusAccepted, BookingStatusDeclined},
}

// CanTransition reports whether a booking in status from may move to to.
func (from BookingStatus) CanTransition(to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Booking is a paid request from a client for a chef's service.
// TotalAmount is kept in minor units (cents) of Currency.
type Booking struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RequesterID      uint          `json:"requesterId" gorm:"not null;index"`
	Requester        *User         `json:"requester,omitempty" gorm:"foreignKey:RequesterID;-:migration"`
	ProviderID       uint          `json:"providerId" gorm:"not null;index"`
	Provider         *User         `json:"provider,omitempty" gorm:"foreignKey:ProviderID;-:migration"`
	Status           BookingStatus `json:"status" gorm:"not null;default:'pending';index"`
	MealType         string        `json:"mealType" gorm:"not null"`
	GuestCount       int           `json:"guestCount" gorm:"not null"`
	Date             string        `json:"date" gorm:"not null"`
	Time             string        `json:"time" gorm:"not null"`
	Cuisine          string        `json:"cuisine" gorm:"not null"`
	Address          string        `json:"address" gorm:"not null;default:''"`
	TotalAmount      int64         `json:"totalAmount" gorm:"not null"`
	Currency         string        `json:"currency" gorm:"not null;size:3"`
	PaymentReference string        `json:"paymentReference" gorm:"not null;index"`
	DeclineReason    string        `json:"declineReason" gorm:"not null;default:''"`
	CreatedAt        time.Time     `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}
