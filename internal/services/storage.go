package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// eventKey names the archived object for one booking event. Keys group by
// booking so a booking's history lists in order.
func eventKey(e BookingEvent) string {
	return path.Join("bookings", e.BookingID, fmt.Sprintf("%d-%s.json", e.OccurredAt.UnixNano(), e.Type))
}

// S3EventArchive keeps an append-only record of booking events in a bucket.
type S3EventArchive struct {
	uploader *s3manager.Uploader
	bucket   string
}

func NewS3EventArchive(region, accessKey, secretKey, bucket string) (*S3EventArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not configured")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3EventArchive{uploader: s3manager.NewUploader(sess), bucket: bucket}, nil
}

func (a *S3EventArchive) PublishBookingEvent(ctx context.Context, e BookingEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(eventKey(e)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// FileEventArchive is the local-disk fallback when S3 is not configured.
type FileEventArchive struct {
	dir string
}

func NewFileEventArchive(dir string) (*FileEventArchive, error) {
	if err := os.MkdirAll(filepath.Join(dir, "bookings"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileEventArchive{dir: dir}, nil
}

func (a *FileEventArchive) PublishBookingEvent(_ context.Context, e BookingEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	target := filepath.Join(a.dir, filepath.FromSlash(eventKey(e)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create folder directory: %w", err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}
