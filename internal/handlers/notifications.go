package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

type PushTokenStore interface {
	SetFCMToken(ctx context.Context, userID uint, token string) error
}

// RegisterFCMToken registers or updates the caller's FCM token
func RegisterFCMToken(users PushTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			FCMToken string `json:"fcmToken" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := users.SetFCMToken(c.Request.Context(), userID, input.FCMToken); err != nil {
			_ = c.Error(err)
			c.JSON(500, gin.H{"error": "Failed to register FCM token"})
			return
		}

		c.JSON(200, gin.H{"message": "FCM token registered successfully"})
	}
}

// RemoveFCMToken removes the caller's FCM token
func RemoveFCMToken(users PushTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		if err := users.SetFCMToken(c.Request.Context(), userID, ""); err != nil {
			_ = c.Error(err)
			c.JSON(500, gin.H{"error": "Failed to remove FCM token"})
			return
		}

		c.JSON(200, gin.H{"message": "FCM token removed successfully"})
	}
}
