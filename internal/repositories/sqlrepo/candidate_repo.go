package sqlrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
	"gorm.io/gorm"
)

type CandidateRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Candidate, error)
	// Create returns utils.ErrConflict when the e-mail already exists.
	Create(ctx context.Context, c *models.Candidate) error
	Update(ctx context.Context, c *models.Candidate) error
	// SetAdmin flags the row as admin and replaces its password hash.
	SetAdmin(ctx context.Context, email, senhaHash string) error
}

type candidateRepo struct {
	db *gorm.DB
}

func NewCandidateRepo(db *gorm.DB) CandidateRepository {
	return &candidateRepo{db: db}
}

func (r *candidateRepo) GetByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var c models.Candidate
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *candidateRepo) Create(ctx context.Context, c *models.Candidate) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if isDuplicate(err) {
		return utils.ErrConflict
	}
	return err
}

func (r *candidateRepo) Update(ctx context.Context, c *models.Candidate) error {
	res := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("email = ?", c.Email).
		Select("nome", "telefone", "area_interesse", "recebe_alertas", "curriculo_path", "senha_hash", "atualizado_em").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *candidateRepo) SetAdmin(ctx context.Context, email, senhaHash string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"is_admin":      true,
			"senha_hash":    senhaHash,
			"atualizado_em": r.db.NowFunc(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}
