package models

import "time"

type ApplicationStatus string

const (
	StatusEmAnalise ApplicationStatus = "em_analise"
	StatusAceito    ApplicationStatus = "aceito"
	StatusRecusado  ApplicationStatus = "recusado"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusEmAnalise, StatusAceito, StatusRecusado:
		return true
	}
	return false
}

// Label is the Portuguese wording shown to reviewers.
func (s ApplicationStatus) Label() string {
	switch s {
	case StatusAceito:
		return "aceita"
	case StatusRecusado:
		return "recusada"
	default:
		return "em análise"
	}
}

type Application struct {
	ID             uint              `gorm:"column:id;primaryKey;autoIncrement"`
	CandidateEmail string            `gorm:"column:candidate_email;type:text;not null;uniqueIndex:idx_applications_candidate_job"`
	JobID          string            `gorm:"column:job_id;type:text;not null;uniqueIndex:idx_applications_candidate_job"`
	JobTitle       string            `gorm:"column:job_title;type:text"`
	Status         ApplicationStatus `gorm:"column:status;type:text;not null;default:em_analise"`
	CriadoEm       time.Time         `gorm:"column:criado_em;not null"`
	AtualizadoEm   time.Time         `gorm:"column:atualizado_em;not null"`

	Candidate *Candidate `gorm:"foreignKey:CandidateEmail;references:Email;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Application) TableName() string { return "applications" }

type ApplicantRef struct {
	Email         string `json:"email"`
	Nome          string `json:"nome"`
	AreaInteresse string `json:"areaInteresse"`
}

// ApplicationView is the wire shape of an application joined with its candidate.
type ApplicationView struct {
	ID           uint              `json:"id"`
	JobID        string            `json:"jobId"`
	JobTitle     string            `json:"jobTitle"`
	Status       ApplicationStatus `json:"status"`
	CriadoEm     time.Time         `json:"criadoEm"`
	AtualizadoEm time.Time         `json:"atualizadoEm"`
	Candidate    ApplicantRef      `json:"candidate"`
}

func (a *Application) View() ApplicationView {
	v := ApplicationView{
		ID:           a.ID,
		JobID:        a.JobID,
		JobTitle:     a.JobTitle,
		Status:       a.Status,
		CriadoEm:     a.CriadoEm,
		AtualizadoEm: a.AtualizadoEm,
		Candidate:    ApplicantRef{Email: a.CandidateEmail},
	}
	if a.Candidate != nil {
		v.Candidate.Nome = a.Candidate.Nome
		v.Candidate.AreaInteresse = a.Candidate.AreaInteresse
	}
	return v
}

type JobSummary struct {
	JobID     string `json:"jobId"`
	JobTitle  string `json:"jobTitle"`
	Total     int    `json:"total"`
	EmAnalise int    `json:"emAnalise"`
	Aceitos   int    `json:"aceitos"`
	Recusados int    `json:"recusados"`
}
