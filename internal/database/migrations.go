package database

import (
	"github.com/chachabrian/rescuelink-backend/internal/models"
	"gorm.io/gorm"
)

// foldEmails lower-cases addresses stored by older deployments. Rows whose
// folded address would collide with another account are left as written;
// lookups resolve such duplicates to the oldest account.
const foldEmails = `
UPDATE users SET email = LOWER(TRIM(email))
WHERE email <> LOWER(TRIM(email))
  AND NOT EXISTS (
    SELECT 1 FROM users AS other
    WHERE other.id <> users.id
      AND LOWER(TRIM(other.email)) = LOWER(TRIM(users.email))
  )`

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.OTP{},
		&models.Review{},
	)
	if err != nil {
		return err
	}

	return db.Exec(foldEmails).Error
}
