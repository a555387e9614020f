// Package ports defines the evaluation engine's contracts to external
// collaborators: the requirements registry, the program base-score registry,
// and the ranking store's publication state. Defined here so the engine
// depends on neither the in-process registries nor the ranking module.
package ports

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"transferdesk/pkg/domain"
)

// CustomRule enumerates department-specific requirements beyond the global
// GPA/exam thresholds. The registry cannot machine-evaluate these; staff
// supply the verdict at evaluation time.
type CustomRule string

const (
	CustomRuleNone            CustomRule = ""
	CustomRuleMinCourseGrade  CustomRule = "MIN_COURSE_GRADE"
	CustomRulePortfolioReview CustomRule = "PORTFOLIO_REVIEW"
)

// Requirements is a department's eligibility rule set.
type Requirements struct {
	DepartmentID domain.DepartmentID
	MinGPA       float64
	// MinExamScore applies when MaxExamRank is zero.
	MinExamScore float64
	// MaxExamRank, when positive, replaces the score threshold: the
	// applicant's declared exam rank must be at or under it.
	MaxExamRank int
	CustomRule  CustomRule
}

// RequirementsRegistry resolves a department's eligibility rules.
type RequirementsRegistry interface {
	// GetRequirements returns sentinel.ErrNotFound when the department has
	// no configured rule set.
	GetRequirements(ctx context.Context, departmentID domain.DepartmentID) (*Requirements, error)
}

// BaseScoreRegistry resolves the program's reference exam score per exam
// year.
type BaseScoreRegistry interface {
	// GetBaseScore returns sentinel.ErrNotFound when no base score is
	// configured for that program and year.
	GetBaseScore(ctx context.Context, departmentID domain.DepartmentID, facultyID domain.FacultyID, examYear int) (float64, error)
}

// PublicationChecker reports whether a published ranking references the
// application, which freezes its evaluation. Implemented by the ranking
// store.
type PublicationChecker interface {
	IsLocked(ctx context.Context, applicationID domain.ApplicationID) (bool, error)
}
