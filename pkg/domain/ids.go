// Package domain holds shared domain primitives: typed identifiers and the
// closed enums consumed by every module. IDs are distinct types over uuid.UUID
// so the compiler rejects cross-entity mixups; construct them via Parse* at
// trust boundaries to enforce validity.
package domain

import (
	"github.com/google/uuid"

	dErrors "transferdesk/pkg/domain-errors"
)

type (
	// ApplicationID identifies a transfer application.
	ApplicationID uuid.UUID
	// StudentID identifies the student who owns an application.
	StudentID uuid.UUID
	// ActorID identifies whoever performs an operation (student or staff).
	ActorID uuid.UUID
	// EvaluationID identifies an evaluation pass.
	EvaluationID uuid.UUID
	// RankingID identifies one ranking row.
	RankingID uuid.UUID
	// DocumentID identifies an uploaded document's metadata record.
	DocumentID uuid.UUID
	// FacultyID identifies a target faculty.
	FacultyID uuid.UUID
	// DepartmentID identifies a target department.
	DepartmentID uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseApplicationID validates external input into an ApplicationID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	return ApplicationID(u), err
}

// ParseStudentID validates external input into a StudentID.
func ParseStudentID(s string) (StudentID, error) {
	u, err := parseUUID(s)
	return StudentID(u), err
}

// ParseActorID validates external input into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	return ActorID(u), err
}

// ParseEvaluationID validates external input into an EvaluationID.
func ParseEvaluationID(s string) (EvaluationID, error) {
	u, err := parseUUID(s)
	return EvaluationID(u), err
}

// ParseDocumentID validates external input into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

// ParseFacultyID validates external input into a FacultyID.
func ParseFacultyID(s string) (FacultyID, error) {
	u, err := parseUUID(s)
	return FacultyID(u), err
}

// ParseDepartmentID validates external input into a DepartmentID.
func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseUUID(s)
	return DepartmentID(u), err
}

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EvaluationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RankingID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FacultyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText render IDs as canonical UUID strings in JSON and
// any other text-based encoding.

func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id StudentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id EvaluationID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id RankingID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id FacultyID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DepartmentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *ApplicationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ApplicationID(u)
	return nil
}

func (id *StudentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = StudentID(u)
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ActorID(u)
	return nil
}

func (id *EvaluationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = EvaluationID(u)
	return nil
}

func (id *RankingID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = RankingID(u)
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DocumentID(u)
	return nil
}

func (id *FacultyID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = FacultyID(u)
	return nil
}

func (id *DepartmentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DepartmentID(u)
	return nil
}

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id StudentID) String() string     { return uuid.UUID(id).String() }
func (id ActorID) String() string       { return uuid.UUID(id).String() }
func (id EvaluationID) String() string  { return uuid.UUID(id).String() }
func (id RankingID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id FacultyID) String() string     { return uuid.UUID(id).String() }
func (id DepartmentID) String() string  { return uuid.UUID(id).String() }
