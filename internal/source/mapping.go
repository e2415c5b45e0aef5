package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// BatchSpec maps one source file's columns onto the entity graph. Specs
// live next to the batch files as YAML documents, so onboarding a new
// source is a data change, not a code change.
type BatchSpec struct {
	// Name identifies the batch in logs and stats.
	Name string `yaml:"name"`
	// Tag is appended to every person touched by the batch.
	Tag string `yaml:"tag"`
	// Source labels junction rows with the batch's provenance.
	Source string `yaml:"source"`

	Sheet    string `yaml:"sheet"`
	SkipRows int    `yaml:"skip_rows"`

	Asset        *AssetMapping    `yaml:"asset"`
	Organization *OrgMapping      `yaml:"organization"`
	Contacts     []ContactMapping `yaml:"contacts"`
}

// AssetMapping binds asset identity and detail columns.
type AssetMapping struct {
	Name    string            `yaml:"name"`
	Address string            `yaml:"address"`
	City    string            `yaml:"city"`
	State   string            `yaml:"state"`
	Zip     string            `yaml:"zip"`
	Details map[string]string `yaml:"details"` // detail key -> column
	Phones  []string          `yaml:"phones"`  // asset-level phone columns
}

// OrgMapping binds organization columns. Fields feed the majority vote.
type OrgMapping struct {
	Name    string            `yaml:"name"`
	OrgType string            `yaml:"org_type"` // literal, not a column
	Role    string            `yaml:"role"`     // asset_organizations role
	Fields  map[string]string `yaml:"fields"`   // org field -> column
	Details map[string]string `yaml:"details"`  // detail key -> column
}

// ContactMapping binds one contact slot's columns. A record may carry
// several slots (owner, manager, broker) as separate column groups.
type ContactMapping struct {
	Role      string `yaml:"role"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	// FullName is split on the first space when the first/last columns
	// are absent or empty.
	FullName string `yaml:"full_name"`

	Emails  []ChannelMapping `yaml:"emails"`
	Phones  []ChannelMapping `yaml:"phones"`
	Profile *ProfileMapping  `yaml:"profile"`

	Title         string `yaml:"title"`
	LeadStatus    string `yaml:"lead_status"`    // column holding a status value
	DefaultStatus string `yaml:"default_status"` // literal fallback
	UserRef       string `yaml:"user_ref"`
	EmailStatus   string `yaml:"email_status"` // bounced/suppressed flag column

	Details map[string]string `yaml:"details"` // detail key -> column
}

// ChannelMapping binds one phone or email column.
type ChannelMapping struct {
	Column  string `yaml:"column"`
	Label   string `yaml:"label"`
	Primary bool   `yaml:"primary"`
}

// ProfileMapping binds a profile URL column and an optional display name.
type ProfileMapping struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// LoadSpec reads and validates a batch mapping spec.
func LoadSpec(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: read mapping spec")
	}
	var spec BatchSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, eris.Wrap(err, "source: parse mapping spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the mapping is internally usable before a run starts.
func (s *BatchSpec) Validate() error {
	if s.Name == "" {
		return eris.New("source: mapping spec missing name")
	}
	if len(s.Contacts) == 0 && s.Organization == nil && s.Asset == nil {
		return eris.Errorf("source: mapping spec %q maps nothing", s.Name)
	}
	for i, c := range s.Contacts {
		if c.FirstName == "" && c.LastName == "" && c.FullName == "" {
			return eris.Errorf("source: contact %d in spec %q has no name columns", i, s.Name)
		}
		for _, e := range c.Emails {
			if e.Column == "" {
				return eris.Errorf("source: contact %d in spec %q has an email mapping without a column", i, s.Name)
			}
		}
		for _, p := range c.Phones {
			if p.Column == "" {
				return eris.Errorf("source: contact %d in spec %q has a phone mapping without a column", i, s.Name)
			}
		}
	}
	if s.Asset != nil && s.Asset.Name == "" {
		return eris.Errorf("source: asset mapping in spec %q missing name column", s.Name)
	}
	if s.Organization != nil && s.Organization.Name == "" {
		return eris.Errorf("source: organization mapping in spec %q missing name column", s.Name)
	}
	return nil
}
