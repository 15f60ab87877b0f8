package models

import "time"

// AuditLog records a mutation of academic data.
type AuditLog struct {
	ID         int64                  `json:"id" db:"id"`
	UserID     *int64                 `json:"userId,omitempty" db:"user_id"`
	Action     string                 `json:"action" db:"action"`
	EntityType string                 `json:"entityType" db:"entity_type"`
	EntityID   int64                  `json:"entityId" db:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"createdAt" db:"created_at"`
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	EntityType string
	EntityID   *int64
	UserID     *int64
	Action     string
	From       *time.Time
	To         *time.Time
}

// Audit actions
const (
	AuditActionCreate         = "create"
	AuditActionUpdate         = "update"
	AuditActionDelete         = "delete"
	AuditActionStatusChange   = "status_change"
	AuditActionEnroll         = "enroll"
	AuditActionWaitlist       = "waitlist"
	AuditActionDrop           = "drop"
	AuditActionPromote        = "promote"
	AuditActionGrade          = "grade"
	AuditActionCancel         = "cancel"
	AuditActionInvoice        = "invoice"
	AuditActionPayment        = "payment"
	AuditActionVoid           = "void"
	AuditActionSetPrereqs     = "set_prerequisites"
	AuditActionScheduleAdd    = "schedule_add"
	AuditActionScheduleRemove = "schedule_remove"
)

// Audit entity types
const (
	EntityUser       = "user"
	EntityDepartment = "department"
	EntityStudent    = "student"
	EntityInstructor = "instructor"
	EntityCourse     = "course"
	EntityTerm       = "term"
	EntityRoom       = "room"
	EntitySection    = "section"
	EntityMeeting    = "meeting"
	EntityEnrollment = "enrollment"
	EntityInvoice    = "invoice"
)
