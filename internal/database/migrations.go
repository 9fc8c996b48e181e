package database

import (
	"github.com/chachabrian/chefbook-backend/internal/models"
	"gorm.io/gorm"
)

// RunMigrations migrates the bookings table only. The users table belongs to
// the accounts service and must already exist on postgres.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Booking{}); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	statements := []string{
		`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS fk_bookings_requester`,
		`ALTER TABLE bookings ADD CONSTRAINT fk_bookings_requester FOREIGN KEY (requester_id) REFERENCES users(id)`,
		`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS fk_bookings_provider`,
		`ALTER TABLE bookings ADD CONSTRAINT fk_bookings_provider FOREIGN KEY (provider_id) REFERENCES users(id)`,
		`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_status_check`,
		`ALTER TABLE bookings ADD CONSTRAINT bookings_status_check CHECK (status IN ('pending', 'accepted', 'declined', 'completed'))`,
		`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_guest_count_check`,
		`ALTER TABLE bookings ADD CONSTRAINT bookings_guest_count_check CHECK (guest_count >= 1)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
