// Package sqlrepo holds the gorm repositories used with both the local SQLite
// file and PostgreSQL.
package sqlrepo

import (
	"github.com/idealempregos/portal/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the candidates, applications and admin_sessions tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Candidate{}, &models.Application{}, &models.AdminSession{})
}
