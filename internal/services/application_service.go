package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/idealempregos/portal/internal/models"
	sqlrepo "github.com/idealempregos/portal/internal/repositories/sqlrepo"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/sirupsen/logrus"
)

type ApplicationService interface {
	Apply(ctx context.Context, email, jobID, jobTitle string) (*models.Application, error)
	ListAll(ctx context.Context) ([]models.ApplicationView, error)
	Summary(ctx context.Context) ([]models.JobSummary, error)
	SetStatus(ctx context.Context, id uint, status models.ApplicationStatus) (*models.Application, error)
}

type applicationService struct {
	applications sqlrepo.ApplicationRepository
	candidates   sqlrepo.CandidateRepository
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewApplicationService(applications sqlrepo.ApplicationRepository, candidates sqlrepo.CandidateRepository, log logrus.FieldLogger) ApplicationService {
	return &applicationService{
		applications: applications,
		candidates:   candidates,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *applicationService) Apply(ctx context.Context, email, jobID, jobTitle string) (*models.Application, error) {
	const op = "ApplicationService.Apply"

	email, jobID, jobTitle = strings.TrimSpace(email), strings.TrimSpace(jobID), strings.TrimSpace(jobTitle)
	if email == "" || jobID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Informe o e-mail do candidato e o identificador da vaga.", nil)
	}

	if _, err := s.candidates.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "Nenhum cadastro foi encontrado para o e-mail informado.", err)
		}
		return nil, s.storageError(op, "load candidate", err)
	}

	now := s.now()
	a := &models.Application{
		CandidateEmail: email,
		JobID:          jobID,
		JobTitle:       jobTitle,
		Status:         models.StatusEmAnalise,
		CriadoEm:       now,
		AtualizadoEm:   now,
	}
	if err := s.applications.Upsert(ctx, a); err != nil {
		return nil, s.storageError(op, "upsert application", err)
	}

	out, err := s.applications.GetByCandidateJob(ctx, email, jobID)
	if err != nil {
		return nil, s.storageError(op, "reload application", err)
	}
	return out, nil
}

func (s *applicationService) ListAll(ctx context.Context) ([]models.ApplicationView, error) {
	const op = "ApplicationService.ListAll"

	rows, err := s.applications.ListAll(ctx)
	if err != nil {
		return nil, s.storageError(op, "list applications", err)
	}

	out := make([]models.ApplicationView, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].View())
	}
	return out, nil
}

func (s *applicationService) Summary(ctx context.Context) ([]models.JobSummary, error) {
	views, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(views), nil
}

func (s *applicationService) SetStatus(ctx context.Context, id uint, status models.ApplicationStatus) (*models.Application, error) {
	const op = "ApplicationService.SetStatus"

	if !status.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Status inválido. Use em_analise, aceito ou recusado.", nil)
	}

	if err := s.applications.UpdateStatus(ctx, id, status, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "Nenhuma candidatura foi encontrada para o identificador informado.", err)
		}
		return nil, s.storageError(op, "update status", err)
	}

	a, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, s.storageError(op, "reload application", err)
	}
	return a, nil
}

// Summarize counts applications per job, in the order each job was first
// applied to. The title shown is the latest non-empty one.
func Summarize(views []models.ApplicationView) []models.JobSummary {
	ordered := make([]models.ApplicationView, len(views))
	copy(ordered, views)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	out := []models.JobSummary{}
	index := map[string]int{}
	for _, v := range ordered {
		i, ok := index[v.JobID]
		if !ok {
			i = len(out)
			index[v.JobID] = i
			out = append(out, models.JobSummary{JobID: v.JobID})
		}

		sum := &out[i]
		if v.JobTitle != "" {
			sum.JobTitle = v.JobTitle
		}
		sum.Total++
		switch v.Status {
		case models.StatusAceito:
			sum.Aceitos++
		case models.StatusRecusado:
			sum.Recusados++
		default:
			sum.EmAnalise++
		}
	}
	return out
}

func (s *applicationService) storageError(op, step string, err error) error {
	s.log.WithFields(logrus.Fields{"op": op, "step": step}).WithError(err).Error("application storage failure")
	return utils.E(utils.CodeInternal, op, "Não foi possível processar a candidatura no momento. Tente novamente mais tarde.", err)
}
