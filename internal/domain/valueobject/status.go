package valueobject

import "github.com/ignatzorin/studgig-backend/internal/pkg/apperror"

// InteractionKind различает отклик на работу и запрос по навыку или материалу.
type InteractionKind string

const (
	InteractionJobApplication  InteractionKind = "job_application"
	InteractionSkillContact    InteractionKind = "skill_contact"
	InteractionMaterialContact InteractionKind = "material_contact"
)

func (k InteractionKind) IsValid() bool {
	switch k {
	case InteractionJobApplication, InteractionSkillContact, InteractionMaterialContact:
		return true
	}
	return false
}

// SubjectKind возвращает тип объявления, к которому относится взаимодействие.
func (k InteractionKind) SubjectKind() SubjectKind {
	switch k {
	case InteractionJobApplication:
		return SubjectJob
	case InteractionSkillContact:
		return SubjectSkill
	case InteractionMaterialContact:
		return SubjectMaterial
	}
	return ""
}

func NewInteractionKind(kind string) (InteractionKind, error) {
	k := InteractionKind(kind)
	if !k.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип отклика")
	}
	return k, nil
}

// SubjectKind тип объявления: работа, навык или материал.
type SubjectKind string

const (
	SubjectJob      SubjectKind = "job"
	SubjectSkill    SubjectKind = "skill"
	SubjectMaterial SubjectKind = "material"
)

// InteractionStatus общий статус отклика и запроса.
type InteractionStatus string

const (
	InteractionStatusSubmitted InteractionStatus = "submitted"
	InteractionStatusReviewing InteractionStatus = "reviewing"
	InteractionStatusAccepted  InteractionStatus = "accepted"
	InteractionStatusRejected  InteractionStatus = "rejected"
	InteractionStatusWithdrawn InteractionStatus = "withdrawn"
)

func (s InteractionStatus) IsValid() bool {
	switch s {
	case InteractionStatusSubmitted, InteractionStatusReviewing, InteractionStatusAccepted,
		InteractionStatusRejected, InteractionStatusWithdrawn:
		return true
	}
	return false
}

func (s InteractionStatus) IsTerminal() bool {
	return s == InteractionStatusAccepted || s == InteractionStatusRejected || s == InteractionStatusWithdrawn
}

// CanTransitionTo не допускает возврата в submitted ни из одного состояния.
func (s InteractionStatus) CanTransitionTo(newStatus InteractionStatus) bool {
	transitions := map[InteractionStatus][]InteractionStatus{
		InteractionStatusSubmitted: {InteractionStatusReviewing, InteractionStatusAccepted, InteractionStatusRejected, InteractionStatusWithdrawn},
		InteractionStatusReviewing: {InteractionStatusAccepted, InteractionStatusRejected, InteractionStatusWithdrawn},
	}
	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// Label возвращает название статуса так, как его видит пользователь.
func (s InteractionStatus) Label(kind InteractionKind) string {
	if kind == InteractionJobApplication {
		switch s {
		case InteractionStatusSubmitted:
			return "Applied"
		case InteractionStatusReviewing:
			return "Reviewing"
		case InteractionStatusAccepted:
			return "Accepted"
		case InteractionStatusRejected:
			return "Rejected"
		}
	} else {
		switch s {
		case InteractionStatusSubmitted:
			return "Contact Initiated"
		case InteractionStatusReviewing:
			return "In Discussion"
		case InteractionStatusAccepted:
			return "Agreement Reached"
		case InteractionStatusRejected:
			return "Declined"
		}
	}
	if s == InteractionStatusWithdrawn {
		return "Withdrawn"
	}
	return string(s)
}

func NewInteractionStatus(status string) (InteractionStatus, error) {
	s := InteractionStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус отклика")
	}
	return s, nil
}

// WorkStatus статус работы.
type WorkStatus string

const (
	WorkStatusInProgress WorkStatus = "in_progress"
	WorkStatusPaused     WorkStatus = "paused"
	WorkStatusCompleted  WorkStatus = "completed"
	WorkStatusCancelled  WorkStatus = "cancelled"
)

func (s WorkStatus) IsValid() bool {
	switch s {
	case WorkStatusInProgress, WorkStatusPaused, WorkStatusCompleted, WorkStatusCancelled:
		return true
	}
	return false
}

func (s WorkStatus) IsTerminal() bool {
	return s == WorkStatusCompleted || s == WorkStatusCancelled
}

func (s WorkStatus) CanTransitionTo(newStatus WorkStatus) bool {
	transitions := map[WorkStatus][]WorkStatus{
		WorkStatusInProgress: {WorkStatusPaused, WorkStatusCompleted, WorkStatusCancelled},
		WorkStatusPaused:     {WorkStatusInProgress, WorkStatusCompleted, WorkStatusCancelled},
	}
	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s WorkStatus) Label() string {
	switch s {
	case WorkStatusInProgress:
		return "In Progress"
	case WorkStatusPaused:
		return "Paused"
	case WorkStatusCompleted:
		return "Completed"
	case WorkStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

func NewWorkStatus(status string) (WorkStatus, error) {
	s := WorkStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус работы")
	}
	return s, nil
}

// EscrowStatus статус удержания средств.
type EscrowStatus string

const (
	EscrowStatusFunded     EscrowStatus = "funded"
	EscrowStatusInProgress EscrowStatus = "in_progress"
	EscrowStatusCompleted  EscrowStatus = "completed"
	EscrowStatusReleased   EscrowStatus = "released"
	EscrowStatusDisputed   EscrowStatus = "disputed"
)

// SettleableEscrowStatuses статусы, из которых возможны release и dispute.
var SettleableEscrowStatuses = []EscrowStatus{EscrowStatusFunded, EscrowStatusInProgress, EscrowStatusCompleted}

func (s EscrowStatus) IsSettleable() bool {
	for _, status := range SettleableEscrowStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	switch newStatus {
	case EscrowStatusInProgress:
		return s == EscrowStatusFunded
	case EscrowStatusCompleted:
		return s == EscrowStatusFunded || s == EscrowStatusInProgress
	case EscrowStatusReleased, EscrowStatusDisputed:
		return s.IsSettleable()
	}
	return false
}

// Predecessors возвращает статусы, из которых допустим переход в s.
func (s EscrowStatus) Predecessors() []EscrowStatus {
	var out []EscrowStatus
	for _, from := range []EscrowStatus{EscrowStatusFunded, EscrowStatusInProgress, EscrowStatusCompleted, EscrowStatusReleased, EscrowStatusDisputed} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// InvoiceStatus статус счёта.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

func (s InvoiceStatus) CanTransitionTo(newStatus InvoiceStatus) bool {
	transitions := map[InvoiceStatus][]InvoiceStatus{
		InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
	}
	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewInvoiceStatus(status string) (InvoiceStatus, error) {
	s := InvoiceStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус счёта")
	}
	return s, nil
}

// Predecessors возвращает статусы, из которых допустим переход в s.
func (s InteractionStatus) Predecessors() []InteractionStatus {
	var out []InteractionStatus
	for _, from := range []InteractionStatus{InteractionStatusSubmitted, InteractionStatusReviewing, InteractionStatusAccepted, InteractionStatusRejected, InteractionStatusWithdrawn} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Predecessors возвращает статусы, из которых допустим переход в s.
func (s WorkStatus) Predecessors() []WorkStatus {
	var out []WorkStatus
	for _, from := range []WorkStatus{WorkStatusInProgress, WorkStatusPaused, WorkStatusCompleted, WorkStatusCancelled} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Predecessors возвращает статусы, из которых допустим переход в s.
func (s InvoiceStatus) Predecessors() []InvoiceStatus {
	var out []InvoiceStatus
	for _, from := range []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}
