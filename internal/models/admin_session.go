package models

import "time"

// AdminSession backs an issued admin token. ID is the token's jti.
type AdminSession struct {
	ID         string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Email      string     `gorm:"column:email;type:text;not null;index" json:"email"`
	CriadoEm   time.Time  `gorm:"column:criado_em;not null" json:"criado_em"`
	ExpiraEm   time.Time  `gorm:"column:expira_em;not null" json:"expira_em"`
	RevogadoEm *time.Time `gorm:"column:revogado_em" json:"revogado_em,omitempty"`
}

func (AdminSession) TableName() string { return "admin_sessions" }

func (s *AdminSession) Active(now time.Time) bool {
	return s.RevogadoEm == nil && now.Before(s.ExpiraEm)
}
