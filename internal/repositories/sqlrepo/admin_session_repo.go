package sqlrepo

import (
	"context"
	"errors"
	"time"

	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
	"gorm.io/gorm"
)

// AdminSessionRepo stores admin sessions in the admin_sessions table. It
// satisfies services.AdminSessionStore.
type AdminSessionRepo struct {
	db *gorm.DB
}

func NewAdminSessionRepo(db *gorm.DB) *AdminSessionRepo {
	return &AdminSessionRepo{db: db}
}

func (r *AdminSessionRepo) Create(ctx context.Context, s *models.AdminSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *AdminSessionRepo) Get(ctx context.Context, id string) (*models.AdminSession, error) {
	var s models.AdminSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *AdminSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.AdminSession{}).
		Where("id = ? AND revogado_em IS NULL", id).
		Update("revogado_em", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// PurgeExpired drops sessions that expired before cutoff.
func (r *AdminSessionRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expira_em < ?", cutoff).
		Delete(&models.AdminSession{})
	return res.RowsAffected, res.Error
}
