package sqlrepo

import (
	"context"
	"errors"
	"time"

	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository interface {
	// Upsert inserts on first (candidate_email, job_id) and otherwise only
	// refreshes atualizado_em and, when the new one is non-empty, job_title.
	// Status is left alone.
	Upsert(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id uint) (*models.Application, error)
	GetByCandidateJob(ctx context.Context, email, jobID string) (*models.Application, error)
	ListAll(ctx context.Context) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id uint, status models.ApplicationStatus, at time.Time) error
}

type applicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

func (r *applicationRepo) Upsert(ctx context.Context, a *models.Application) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "candidate_email"}, {Name: "job_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "job_title"}, Value: gorm.Expr("COALESCE(NULLIF(excluded.job_title, ''), applications.job_title)")},
				{Column: clause.Column{Name: "atualizado_em"}, Value: gorm.Expr("excluded.atualizado_em")},
			},
		}).
		Create(a).Error
}

func (r *applicationRepo) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	var a models.Application
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("id = ?", id).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *applicationRepo) GetByCandidateJob(ctx context.Context, email, jobID string) (*models.Application, error) {
	var a models.Application
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("candidate_email = ? AND job_id = ?", email, jobID).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *applicationRepo) ListAll(ctx context.Context) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Order("criado_em DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id uint, status models.ApplicationStatus, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "atualizado_em": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
