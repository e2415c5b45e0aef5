package model

import "time"

// Organization is a company, firm, or managing entity. Identity is
// exact name equality on the canonical name key; there is no fuzzy
// grouping and no legal-suffix normalization, so "Acme" and "Acme LLC"
// are two organizations. This is a documented limitation of the
// consolidation design, not an accident.
type Organization struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OrgType string `json:"org_type,omitempty" db:"org_type"`

	// Descriptive fields resolved by majority vote across all mentions.
	Address      string `json:"address,omitempty" db:"address"`
	City         string `json:"city,omitempty" db:"city"`
	State        string `json:"state,omitempty" db:"state"`
	Zip          string `json:"zip,omitempty" db:"zip"`
	Country      string `json:"country,omitempty" db:"country"`
	Website      string `json:"website,omitempty" db:"website"`
	Category     string `json:"category,omitempty" db:"category"`
	CompanyEmail string `json:"company_email,omitempty" db:"company_email"`

	Details   map[string]any `json:"details,omitempty" db:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Asset is an entity with its own identity (a property, building, or
// similar holding). Assets can hold channels and organizations directly,
// without a named person in between.
type Asset struct {
	ID      int64          `json:"id" db:"id"`
	Name    string         `json:"name" db:"name"`
	Address string         `json:"address" db:"address"`
	City    string         `json:"city,omitempty" db:"city"`
	State   string         `json:"state,omitempty" db:"state"`
	Zip     string         `json:"zip,omitempty" db:"zip"`
	Details map[string]any `json:"details,omitempty" db:"details"`
}

// AssetKey is the natural identity of an asset: name plus address.
type AssetKey struct {
	Name    string
	Address string
}
