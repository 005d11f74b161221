package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
)

// WorkAssignment принятая работа между исполнителем и заказчиком.
// Ровно одно из JobID, SkillID, MaterialID заполнено.
type WorkAssignment struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	InteractionID uuid.UUID              `db:"interaction_id" json:"interaction_id"`
	ProviderID    uuid.UUID              `db:"provider_id" json:"provider_id"`
	ClientID      uuid.UUID              `db:"client_id" json:"client_id"`
	JobID         *uuid.UUID             `db:"job_id" json:"job_id,omitempty"`
	SkillID       *uuid.UUID             `db:"skill_id" json:"skill_id,omitempty"`
	MaterialID    *uuid.UUID             `db:"material_id" json:"material_id,omitempty"`
	Title         string                 `db:"title" json:"title"`
	Status        valueobject.WorkStatus `db:"status" json:"status"`
	EscrowHoldID  *uuid.UUID             `db:"escrow_hold_id" json:"escrow_hold_id,omitempty"`
	StartDate     time.Time              `db:"start_date" json:"start_date"`
	EndDate       *time.Time             `db:"end_date" json:"end_date,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updated_at"`
}

// Subject возвращает тип и идентификатор объявления, из которого создана работа.
func (w *WorkAssignment) Subject() (valueobject.SubjectKind, uuid.UUID) {
	switch {
	case w.JobID != nil:
		return valueobject.SubjectJob, *w.JobID
	case w.SkillID != nil:
		return valueobject.SubjectSkill, *w.SkillID
	case w.MaterialID != nil:
		return valueobject.SubjectMaterial, *w.MaterialID
	}
	return "", uuid.Nil
}

// SetSubject заполняет ровно одну ссылку на объявление.
func (w *WorkAssignment) SetSubject(kind valueobject.SubjectKind, id uuid.UUID) {
	w.JobID, w.SkillID, w.MaterialID = nil, nil, nil
	switch kind {
	case valueobject.SubjectJob:
		w.JobID = &id
	case valueobject.SubjectSkill:
		w.SkillID = &id
	case valueobject.SubjectMaterial:
		w.MaterialID = &id
	}
}

// IsParticipant сообщает, является ли пользователь стороной работы.
func (w *WorkAssignment) IsParticipant(userID uuid.UUID) bool {
	return w.ProviderID == userID || w.ClientID == userID
}

// Counterparty возвращает вторую сторону относительно userID.
func (w *WorkAssignment) Counterparty(userID uuid.UUID) uuid.UUID {
	if userID == w.ProviderID {
		return w.ClientID
	}
	return w.ProviderID
}
