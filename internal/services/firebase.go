package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// FCMSender delivers push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	log    logrus.FieldLogger
}

// NewFCMSender initializes the Firebase Admin SDK from a service account file.
func NewFCMSender(ctx context.Context, serviceAccountPath string, log logrus.FieldLogger) (*FCMSender, error) {
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info("Firebase Cloud Messaging initialized")
	return &FCMSender{client: client, log: log}, nil
}

func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	response, err := s.client.Send(ctx, buildMessage(token, title, body, data))
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	s.log.WithField("response", response).Debug("push delivered to FCM")
	return nil
}

func buildMessage(token, title, body string, data map[string]string) *messaging.Message {
	channelID := "chefbook_bookings"
	if t := data["type"]; t != "" {
		channelID = "chefbook_" + t
	}

	badge := 1
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:                 "default",
				DefaultSound:          true,
				ChannelID:             channelID,
				Priority:              messaging.PriorityHigh,
				Icon:                  "ic_stat_logo",
				Tag:                   data["bookingId"],
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:          "default",
					Badge:          &badge,
					MutableContent: true,
				},
			},
		},
	}
}
