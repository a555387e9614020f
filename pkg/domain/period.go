package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "transferdesk/pkg/domain-errors"
)

// Semester is the academic term within a year.
type Semester string

const (
	SemesterFall   Semester = "FALL"
	SemesterSpring Semester = "SPRING"
)

var validSemesters = map[Semester]bool{
	SemesterFall:   true,
	SemesterSpring: true,
}

// ParseSemester constructs a Semester from external input.
func ParseSemester(s string) (Semester, error) {
	sem := Semester(strings.ToUpper(s))
	if !validSemesters[sem] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid semester")
	}
	return sem, nil
}

func (s Semester) IsValid() bool { return validSemesters[s] }

func (s Semester) String() string { return string(s) }

// Period identifies one application period, formatted "<year>-<semester>",
// e.g. "2026-FALL". Quota records are keyed by the (semester, academic year)
// pair the period decomposes into.
type Period string

// ParsePeriod validates external input into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(s))
	if _, _, err := p.split(); err != nil {
		return "", err
	}
	return p, nil
}

// NewPeriod builds a Period from its parts.
func NewPeriod(year int, semester Semester) Period {
	return Period(fmt.Sprintf("%d-%s", year, semester))
}

func (p Period) split() (int, Semester, error) {
	parts := strings.SplitN(string(p), "-", 2)
	if len(parts) != 2 {
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "period must be formatted <year>-<semester>")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1900 || year > 2999 {
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "period year is invalid")
	}
	sem, err := ParseSemester(parts[1])
	if err != nil {
		return 0, "", err
	}
	return year, sem, nil
}

// IsValid reports whether the period parses.
func (p Period) IsValid() bool {
	_, _, err := p.split()
	return err == nil
}

// AcademicYear returns the calendar year component.
func (p Period) AcademicYear() int {
	year, _, _ := p.split()
	return year
}

// Semester returns the term component.
func (p Period) Semester() Semester {
	_, sem, _ := p.split()
	return sem
}

func (p Period) String() string { return string(p) }

// Cohort is the unit of ranking: all applications sharing a department,
// faculty, and application period are evaluated and ranked together.
type Cohort struct {
	DepartmentID DepartmentID
	FacultyID    FacultyID
	Period       Period
}

// Validate checks all cohort components are present.
func (c Cohort) Validate() error {
	if c.DepartmentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	if c.FacultyID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "faculty id is required")
	}
	if !c.Period.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "period is invalid")
	}
	return nil
}

// Key returns a stable string form, used for lock keys and map keys.
func (c Cohort) Key() string {
	return fmt.Sprintf("%s:%s:%s", c.DepartmentID, c.FacultyID, c.Period)
}

func (c Cohort) String() string { return c.Key() }
