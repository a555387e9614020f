// Package quota manages the per-program transfer seat allocations. A quota
// row bounds how many primary placements a ranking may hand out for one
// department, faculty, semester and academic year.
package quota

import (
	"time"

	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// Key identifies one quota allocation.
type Key struct {
	DepartmentID domain.DepartmentID `json:"department_id"`
	FacultyID    domain.FacultyID    `json:"faculty_id"`
	Semester     domain.Semester     `json:"semester"`
	AcademicYear int                 `json:"academic_year"`
}

// KeyForCohort derives the quota key from a ranking cohort.
func KeyForCohort(cohort domain.Cohort) Key {
	return Key{
		DepartmentID: cohort.DepartmentID,
		FacultyID:    cohort.FacultyID,
		Semester:     cohort.Period.Semester(),
		AcademicYear: cohort.Period.AcademicYear(),
	}
}

// Validate checks the key's components.
func (k Key) Validate() error {
	if k.DepartmentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	if k.FacultyID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "faculty id is required")
	}
	if !k.Semester.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "semester is invalid")
	}
	if k.AcademicYear < 2000 || k.AcademicYear > 2100 {
		return dErrors.New(dErrors.CodeInvalidInput, "academic year is out of range")
	}
	return nil
}

// Quota is one seat allocation.
//
// Invariant: 0 <= FilledCount <= Quota.
type Quota struct {
	Key         Key       `json:"key"`
	Quota       int       `json:"quota"`
	FilledCount int       `json:"filled_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remaining returns the unfilled seat count.
func (q *Quota) Remaining() int {
	return q.Quota - q.FilledCount
}

// Fill consumes n seats.
func (q *Quota) Fill(n int) error {
	if n < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "fill count cannot be negative")
	}
	if q.FilledCount+n > q.Quota {
		return dErrors.New(dErrors.CodeConflict, "quota is exhausted")
	}
	q.FilledCount += n
	return nil
}

// Release returns n seats.
func (q *Quota) Release(n int) error {
	if n < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "release count cannot be negative")
	}
	if q.FilledCount-n < 0 {
		return dErrors.New(dErrors.CodeConflict, "cannot release more seats than are filled")
	}
	q.FilledCount -= n
	return nil
}
