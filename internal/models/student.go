package models

import "time"

// StudentStatus describes where a student is in their school career.
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "active"
	StudentStatusInactive    StudentStatus = "inactive"
	StudentStatusGraduated   StudentStatus = "graduated"
	StudentStatusSuspended   StudentStatus = "suspended"
	StudentStatusTransferred StudentStatus = "transferred"
)

// Student represents a learner. StudentNumber is the school-issued identifier.
type Student struct {
	ID            string        `db:"id" json:"id"`
	UserID        *string       `db:"user_id" json:"user_id,omitempty"`
	StudentNumber string        `db:"student_id" json:"student_id"`
	FullName      string        `db:"full_name" json:"full_name"`
	ClassGroupID  *string       `db:"class_group_id" json:"class_group_id,omitempty"`
	Status        StudentStatus `db:"status" json:"status"`
	AdmissionDate *time.Time    `db:"admission_date" json:"admission_date,omitempty"`
	Remarks       string        `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Valid reports whether s is a known student status.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusInactive, StudentStatusGraduated, StudentStatusSuspended, StudentStatusTransferred:
		return true
	}
	return false
}

// AppendRemark adds line to the remarks on a new line.
func (s *Student) AppendRemark(line string) {
	if s.Remarks == "" {
		s.Remarks = line
		return
	}
	s.Remarks += "\n" + line
}

// Snapshot captures the audited fields of the student.
func (s Student) Snapshot() map[string]interface{} {
	group := ""
	if s.ClassGroupID != nil {
		group = *s.ClassGroupID
	}
	return map[string]interface{}{
		"full_name":      s.FullName,
		"status":         string(s.Status),
		"class_group_id": group,
		"remarks":        s.Remarks,
	}
}

// IsActive reports whether the student may take seats.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}

// InClassGroup reports whether the student belongs to the given class group.
func (s Student) InClassGroup(classGroupID string) bool {
	return s.ClassGroupID != nil && *s.ClassGroupID == classGroupID
}
