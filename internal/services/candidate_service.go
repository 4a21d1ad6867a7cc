package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/idealempregos/portal/internal/models"
	sqlrepo "github.com/idealempregos/portal/internal/repositories/sqlrepo"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	msgMissingPassword    = "Defina uma senha para criar seu cadastro e acessar recomendações personalizadas."
	msgMissingResume      = "Envie o seu currículo para concluir o cadastro."
	msgInvalidCredentials = "Credenciais inválidas. Verifique e tente novamente."
	msgSaveFailed         = "Não foi possível salvar o cadastro no momento. Tente novamente mais tarde."
	msgAdminLocked        = "Este cadastro não pode ser alterado pelo formulário do site."

	adminDisplayName = "Administrador Ideal Empregos"
	adminArea        = "administracao"
)

// ErrInvalidCredentials is returned for both unknown e-mails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

var validate = validator.New()

type CandidateService interface {
	Upsert(ctx context.Context, sub models.CandidateSubmission) (*models.Candidate, error)
	GetByEmail(ctx context.Context, email string) (*models.Candidate, error)
	VerifyLogin(ctx context.Context, email, password string) (*models.Candidate, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

// ResumeStore is the part of storage.ResumeSink the candidate flow needs.
type ResumeStore interface {
	Store(ctx context.Context, candidateEmail string, upload *models.ResumeUpload) (string, error)
	Remove(ctx context.Context, path string) error
}

type candidateService struct {
	candidates sqlrepo.CandidateRepository
	resumes    ResumeStore
	hasher     *utils.PasswordHasher
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewCandidateService(candidates sqlrepo.CandidateRepository, resumes ResumeStore, hasher *utils.PasswordHasher, log logrus.FieldLogger) CandidateService {
	if hasher == nil {
		hasher = utils.NewPasswordHasher(utils.SchemeBcrypt)
	}
	return &candidateService{
		candidates: candidates,
		resumes:    resumes,
		hasher:     hasher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *candidateService) Upsert(ctx context.Context, sub models.CandidateSubmission) (*models.Candidate, error) {
	const op = "CandidateService.Upsert"

	email, err := normalizeEmail(op, sub.Email)
	if err != nil {
		return nil, err
	}

	// A lost insert race against another request for the same e-mail shows up
	// as ErrConflict; the second pass finds the row and updates it instead.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.candidates.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, utils.ErrNotFound):
			c, err := s.create(ctx, email, sub)
			if errors.Is(err, utils.ErrConflict) {
				s.log.WithFields(logrus.Fields{"op": op, "email": email}).Warn("insert raced with another registration, retrying as update")
				continue
			}
			return c, err
		case err != nil:
			return nil, s.storageError(op, "load candidate", err)
		default:
			return s.update(ctx, existing, sub)
		}
	}

	return nil, utils.E(utils.CodeConflict, op, "O cadastro foi alterado por outra requisição. Tente novamente.", utils.ErrConflict)
}

func (s *candidateService) create(ctx context.Context, email string, sub models.CandidateSubmission) (*models.Candidate, error) {
	const op = "CandidateService.Upsert"

	nome, area := trimmed(sub.Nome), trimmed(sub.AreaInteresse)
	var missing []string
	if nome == "" {
		missing = append(missing, "nome")
	}
	if area == "" {
		missing = append(missing, "area_interesse")
	}
	if len(missing) > 0 {
		return nil, missingFields(op, missing)
	}

	senha := trimmed(sub.Senha)
	if senha == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, msgMissingPassword, nil)
	}
	if sub.ResumeRequired && sub.Resume == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, msgMissingResume, nil)
	}
	hash, err := s.hasher.Hash(senha)
	if err != nil {
		return nil, err
	}

	c := &models.Candidate{
		Nome:          nome,
		Email:         email,
		Telefone:      trimmed(sub.Telefone),
		AreaInteresse: area,
		RecebeAlertas: sub.RecebeAlertas != nil && *sub.RecebeAlertas,
		SenhaHash:     hash,
	}

	if sub.Resume != nil {
		path, err := s.resumes.Store(ctx, email, sub.Resume)
		if err != nil {
			return nil, err
		}
		c.CurriculoPath = &path
	}

	now := s.now()
	c.CriadoEm, c.AtualizadoEm = now, now

	if err := s.candidates.Create(ctx, c); err != nil {
		if c.CurriculoPath != nil {
			s.discardResume(ctx, op, *c.CurriculoPath)
		}
		if errors.Is(err, utils.ErrConflict) {
			return nil, err
		}
		return nil, s.storageError(op, "insert candidate", err)
	}

	return s.reload(ctx, op, email)
}

func (s *candidateService) update(ctx context.Context, c *models.Candidate, sub models.CandidateSubmission) (*models.Candidate, error) {
	const op = "CandidateService.Upsert"

	// the admin row is seeded from configuration only
	if c.IsAdmin {
		s.log.WithFields(logrus.Fields{"op": op, "email": c.Email}).Warn("public update of admin account refused")
		return nil, utils.E(utils.CodeForbidden, op, msgAdminLocked, nil)
	}

	var missing []string
	if sub.Nome != nil {
		if c.Nome = strings.TrimSpace(*sub.Nome); c.Nome == "" {
			missing = append(missing, "nome")
		}
	}
	if sub.AreaInteresse != nil {
		if c.AreaInteresse = strings.TrimSpace(*sub.AreaInteresse); c.AreaInteresse == "" {
			missing = append(missing, "area_interesse")
		}
	}
	if len(missing) > 0 {
		return nil, missingFields(op, missing)
	}
	if sub.Telefone != nil {
		c.Telefone = strings.TrimSpace(*sub.Telefone)
	}
	if sub.RecebeAlertas != nil {
		c.RecebeAlertas = *sub.RecebeAlertas
	}

	// a blank password field means "keep the current one"
	if senha := trimmed(sub.Senha); senha != "" {
		hash, err := s.hasher.Hash(senha)
		if err != nil {
			return nil, err
		}
		c.SenhaHash = hash
	}

	previous := ""
	if c.CurriculoPath != nil {
		previous = *c.CurriculoPath
	}
	stored := ""
	if sub.Resume != nil {
		path, err := s.resumes.Store(ctx, c.Email, sub.Resume)
		if err != nil {
			return nil, err
		}
		stored = path
		c.CurriculoPath = &path
	}

	c.AtualizadoEm = s.now()

	if err := s.candidates.Update(ctx, c); err != nil {
		if stored != "" && stored != previous {
			s.discardResume(ctx, op, stored)
		}
		return nil, s.storageError(op, "update candidate", err)
	}

	// the old file goes only once the row points at the new one
	if stored != "" && previous != "" && previous != stored {
		s.discardResume(ctx, op, previous)
	}

	return s.reload(ctx, op, c.Email)
}

func (s *candidateService) GetByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	const op = "CandidateService.GetByEmail"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Informe um e-mail para consultar o cadastro.", nil)
	}

	c, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "Nenhum cadastro foi encontrado para o e-mail informado.", err)
		}
		return nil, s.storageError(op, "load candidate", err)
	}
	return c, nil
}

func (s *candidateService) VerifyLogin(ctx context.Context, email, password string) (*models.Candidate, error) {
	const op = "CandidateService.VerifyLogin"

	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Informe e-mail e senha para continuar.", nil)
	}

	c, err := s.candidates.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		s.hasher.DummyCheck(password)
		return nil, utils.E(utils.CodeUnauthorized, op, msgInvalidCredentials, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, s.storageError(op, "load candidate", err)
	}

	if !s.hasher.Check(c.SenhaHash, password) {
		return nil, utils.E(utils.CodeUnauthorized, op, msgInvalidCredentials, ErrInvalidCredentials)
	}
	return c, nil
}

// EnsureAdmin creates the configured admin account, or takes over an existing
// row with that e-mail: the row is flagged and its password replaced by the
// configured one.
func (s *candidateService) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "CandidateService.EnsureAdmin"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	_, err = s.candidates.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.candidates.SetAdmin(ctx, email, hash); err != nil {
			return s.storageError(op, "flag admin", err)
		}
		s.log.WithFields(logrus.Fields{"op": op, "email": email}).Info("existing account promoted to admin")
		return nil
	case !errors.Is(err, utils.ErrNotFound):
		return s.storageError(op, "load admin", err)
	}

	now := s.now()
	admin := &models.Candidate{
		Nome:          adminDisplayName,
		Email:         email,
		AreaInteresse: adminArea,
		SenhaHash:     hash,
		IsAdmin:       true,
		CriadoEm:      now,
		AtualizadoEm:  now,
	}
	err = s.candidates.Create(ctx, admin)
	if errors.Is(err, utils.ErrConflict) {
		err = s.candidates.SetAdmin(ctx, email, hash)
	}
	if err != nil {
		return s.storageError(op, "create admin", err)
	}
	return nil
}

func (s *candidateService) reload(ctx context.Context, op, email string) (*models.Candidate, error) {
	c, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storageError(op, "reload candidate", err)
	}
	return c, nil
}

func (s *candidateService) discardResume(ctx context.Context, op, path string) {
	if err := s.resumes.Remove(ctx, path); err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "path": path}).WithError(err).Warn("resume cleanup failed")
	}
}

func (s *candidateService) storageError(op, step string, err error) error {
	s.log.WithFields(logrus.Fields{"op": op, "step": step}).WithError(err).Error("candidate storage failure")
	return utils.E(utils.CodeInternal, op, msgSaveFailed, err)
}

func normalizeEmail(op, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "Informe o e-mail para salvar o cadastro.", nil)
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "Informe um e-mail válido.", err)
	}
	return email, nil
}

func missingFields(op string, fields []string) error {
	return utils.E(utils.CodeInvalidArgument, op,
		"Os campos a seguir são obrigatórios para salvar o cadastro: "+strings.Join(fields, ", "), nil)
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
