package evaluation

import (
	"math"

	dErrors "transferdesk/pkg/domain-errors"
)

// Score calculation is pure domain logic - no I/O, no side effects. The
// functions receive all data they need as arguments and return a value.

// GPATo100 converts a 4-point GPA to the 100-point scale used by the
// composite transfer score. Piecewise linear, continuous at every interior
// breakpoint; anything below 2.0 maps to zero.
func GPATo100(gpa float64) (float64, error) {
	if gpa < 0 || gpa > 4 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "GPA must be between 0 and 4")
	}
	switch {
	case gpa >= 4.0:
		return 100, nil
	case gpa >= 3.5:
		return 85 + (gpa-3.5)*30, nil
	case gpa >= 3.0:
		return 70 + (gpa-3.0)*30, nil
	case gpa >= 2.5:
		return 60 + (gpa-2.5)*20, nil
	case gpa >= 2.0:
		return 50 + (gpa-2.0)*20, nil
	default:
		return 0, nil
	}
}

// TransferScore blends normalized exam performance (90%) with the converted
// GPA (10%), rounded to 4 decimal places. The base score is the program's
// reference exam score for the applicant's exam year; a program/year without
// a positive base score cannot be scored.
func TransferScore(examScore, baseScore, gpa100 float64) (float64, error) {
	if baseScore <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "base score must be positive")
	}
	if examScore < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "exam score cannot be negative")
	}
	if gpa100 < 0 || gpa100 > 100 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "converted GPA must be between 0 and 100")
	}
	score := (examScore/baseScore)*100*0.9 + gpa100*0.1
	return math.Round(score*10000) / 10000, nil
}
