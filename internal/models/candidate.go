package models

import (
	"io"
	"time"
)

type Candidate struct {
	ID            uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Nome          string  `gorm:"column:nome;type:text;not null" json:"nome"`
	Email         string  `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	Telefone      string  `gorm:"column:telefone;type:text" json:"telefone"`
	AreaInteresse string  `gorm:"column:area_interesse;type:text;not null" json:"areaInteresse"`
	RecebeAlertas bool    `gorm:"column:recebe_alertas;not null" json:"recebeAlertas"`
	CurriculoPath *string `gorm:"column:curriculo_path;type:text" json:"curriculoPath"`
	SenhaHash     string  `gorm:"column:senha_hash;type:text;not null" json:"-"`
	IsAdmin       bool    `gorm:"column:is_admin;not null;default:false" json:"isAdmin"`

	CriadoEm     time.Time `gorm:"column:criado_em;not null" json:"criadoEm"`
	AtualizadoEm time.Time `gorm:"column:atualizado_em;not null" json:"atualizadoEm"`
}

func (Candidate) TableName() string { return "candidates" }

// CandidateSubmission is a profile form parsed from either multipart or JSON.
// Nil fields were not sent and leave the stored value untouched.
type CandidateSubmission struct {
	Email         string
	Nome          *string
	Telefone      *string
	AreaInteresse *string
	RecebeAlertas *bool
	Senha         *string
	Resume        *ResumeUpload

	// ResumeRequired makes a resume mandatory when the e-mail is new. Set for
	// the multipart registration form.
	ResumeRequired bool
}

// ResumeUpload carries an uploaded resume; Open is called once by the sink.
type ResumeUpload struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}
