package models

import (
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeClient UserType = "client"
	UserTypeChef   UserType = "chef"
)

// User is the account row owned by the accounts service. This backend only
// reads it to resolve principals and keeps their push tokens current.
type User struct {
	gorm.Model
	Username    string   `gorm:"column:username;unique;not null" json:"username"`
	Email       string   `gorm:"column:email;unique;not null" json:"email"`
	PhoneNumber string   `gorm:"column:phone_number" json:"phoneNumber"`
	UserType    UserType `gorm:"column:user_type;not null" json:"userType"`
	FCMToken    string   `gorm:"column:fcm_token" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
