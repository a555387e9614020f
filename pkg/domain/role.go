package domain

import dErrors "transferdesk/pkg/domain-errors"

// ActorRole identifies which organizational layer an actor belongs to. The
// state machine authorizes each transition against exactly one role; Admin
// passes every staff check for operational overrides.
type ActorRole string

const (
	// RoleStudent owns the application until submission.
	RoleStudent ActorRole = "STUDENT"
	// RoleOIDBStaff is the admissions office (OIDB) reviewing submissions.
	RoleOIDBStaff ActorRole = "OIDB_STAFF"
	// RoleFacultyStaff routes applications and records board decisions.
	RoleFacultyStaff ActorRole = "FACULTY_STAFF"
	// RoleYGKMember sits on the department evaluation board (YGK).
	RoleYGKMember ActorRole = "YGK_MEMBER"
	// RoleAdmin is the operational superuser.
	RoleAdmin ActorRole = "ADMIN"
)

var validRoles = map[ActorRole]bool{
	RoleStudent:      true,
	RoleOIDBStaff:    true,
	RoleFacultyStaff: true,
	RoleYGKMember:    true,
	RoleAdmin:        true,
}

// ParseActorRole constructs an ActorRole from external input.
func ParseActorRole(s string) (ActorRole, error) {
	r := ActorRole(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid actor role")
	}
	return r, nil
}

func (r ActorRole) IsValid() bool { return validRoles[r] }

func (r ActorRole) String() string { return string(r) }

// Satisfies reports whether an actor holding r may perform an operation that
// requires the given role. Admin satisfies every staff requirement but never
// the student one: staff must not edit a student's declared record.
func (r ActorRole) Satisfies(required ActorRole) bool {
	if r == required {
		return true
	}
	return r == RoleAdmin && required != RoleStudent
}
