// Package ranking orders a cohort's evaluated applications into a quota-bound
// placement list and publishes it. Generation is repeatable and atomic per
// cohort; publication is one-way and freezes the cohort's evaluations.
package ranking

import (
	"time"

	"transferdesk/pkg/domain"
)

// Entry is one application's position in a cohort ranking.
//
// Invariants:
//   - Rank is 1-based among eligible applications; 0 marks an ineligible
//     application carried for visibility
//   - At most one of IsPrimary and IsWaitlisted is set; ineligible entries
//     have neither
//   - IsPublished flips true for the whole cohort at once and never back
type Entry struct {
	ID            domain.RankingID     `json:"id"`
	ApplicationID domain.ApplicationID `json:"application_id"`
	Cohort        domain.Cohort        `json:"cohort"`

	Rank  int      `json:"rank"`
	Score *float64 `json:"score,omitempty"`

	IsPrimary    bool `json:"is_primary"`
	IsWaitlisted bool `json:"is_waitlisted"`

	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// QuotaSnapshot records the seat count used during generation so a
	// published list stays explicable after the quota changes.
	QuotaSnapshot int       `json:"quota_snapshot"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Eligible reports whether the entry holds an actual rank.
func (e *Entry) Eligible() bool { return e.Rank > 0 }
