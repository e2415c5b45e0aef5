// Package model defines the canonical entity graph types for the
// consolidated contact CRM: people, organizations, contact channels,
// assets, and the junction records linking them.
package model

import "time"

// LeadStatus classifies engagement intensity. Statuses form a total
// order and only ever move toward the warmer end when records merge.
type LeadStatus string

// Lead statuses, coldest to warmest. DoNotContact outranks everything:
// once set it is never downgraded by a merge.
const (
	LeadNew          LeadStatus = "new"
	LeadCold         LeadStatus = "cold"
	LeadWarm         LeadStatus = "warm"
	LeadHot          LeadStatus = "hot"
	LeadCustomer     LeadStatus = "customer"
	LeadDoNotContact LeadStatus = "do_not_contact"
)

var leadStatusRank = map[LeadStatus]int{
	LeadNew:          0,
	LeadCold:         1,
	LeadWarm:         2,
	LeadHot:          3,
	LeadCustomer:     4,
	LeadDoNotContact: 5,
}

// Rank returns the position of s in the warmth order. Unknown statuses
// rank as LeadNew.
func (s LeadStatus) Rank() int {
	return leadStatusRank[s]
}

// Valid reports whether s is one of the defined statuses.
func (s LeadStatus) Valid() bool {
	_, ok := leadStatusRank[s]
	return ok
}

// WarmerStatus returns the warmer of two lead statuses. Empty or unknown
// values are treated as LeadNew.
func WarmerStatus(a, b LeadStatus) LeadStatus {
	if !a.Valid() {
		a = LeadNew
	}
	if !b.Valid() {
		b = LeadNew
	}
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// Person is a natural individual. A person exists only if at least one
// of FirstName or LastName is non-empty; nameless mentions never become
// Person rows.
type Person struct {
	ID         int64          `json:"id" db:"id"`
	FirstName  string         `json:"first_name" db:"first_name"`
	LastName   string         `json:"last_name" db:"last_name"`
	LeadStatus LeadStatus     `json:"lead_status" db:"lead_status"`
	Tags       []string       `json:"tags" db:"tags"`
	UserRef    string         `json:"user_ref,omitempty" db:"user_ref"`
	Details    map[string]any `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// MergeTags unions two tag lists: existing order is preserved and new
// tags are appended in their given order. The result is never smaller
// than existing.
func MergeTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	result := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		result = append(result, t)
		seen[t] = true
	}
	for _, t := range incoming {
		if t != "" && !seen[t] {
			result = append(result, t)
			seen[t] = true
		}
	}
	return result
}
