package models

import (
	"reflect"
	"time"
)

// Audit actions recorded for enrollment state changes.
const (
	AuditActionEnrollmentCreate     = "ENROLLMENT_CREATE"
	AuditActionEnrollmentReactivate = "ENROLLMENT_REACTIVATE"
	AuditActionEnrollmentActivate   = "ENROLLMENT_ACTIVATE"
	AuditActionEnrollmentWithdraw   = "ENROLLMENT_WITHDRAW"
	AuditActionEnrollmentComplete   = "ENROLLMENT_COMPLETE"
	AuditActionEnrollmentDrop       = "ENROLLMENT_DROP"
)

// Audit actions recorded for student record changes.
const (
	AuditActionStudentCreate   = "STUDENT_CREATE"
	AuditActionStudentUpdate   = "STUDENT_UPDATE"
	AuditActionStudentTransfer = "STUDENT_TRANSFER"
)

// Entity types of audit rows.
const (
	AuditResourceEnrollment = "enrollment"
	AuditResourceStudent    = "student"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	Changes    []byte    `db:"changes" json:"changes,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditChange is one differing key between two snapshots.
type AuditChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// DiffSnapshots returns the keys whose values differ between old and new.
func DiffSnapshots(old, new map[string]interface{}) map[string]AuditChange {
	changes := make(map[string]AuditChange)
	for k, nv := range new {
		ov, ok := old[k]
		if !ok || !reflect.DeepEqual(ov, nv) {
			changes[k] = AuditChange{Old: ov, New: nv}
		}
	}
	for k, ov := range old {
		if _, ok := new[k]; !ok {
			changes[k] = AuditChange{Old: ov, New: nil}
		}
	}
	return changes
}
