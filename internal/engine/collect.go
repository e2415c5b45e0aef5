package engine

import (
	"strings"

	"github.com/sells-group/contacts-cli/internal/model"
	"github.com/sells-group/contacts-cli/internal/normalize"
	"github.com/sells-group/contacts-cli/internal/source"
	"github.com/sells-group/contacts-cli/internal/store"
)

// placeholderOrgNames are company-name cells that mean "no company".
// This is source-data vocabulary, kept as data so new placeholders are a
// one-line change.
var placeholderOrgNames = map[string]bool{
	"":              true,
	"nan":           true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"unknown":       true,
	"tbd":           true,
	"pending":       true,
	"not available": true,
	"owner managed": true,
	"owner-managed": true,
	"self managed":  true,
	"self-managed":  true,
}

// slotEmail is one email mention on a contact slot.
type slotEmail struct {
	Address string
	Label   string
	Primary bool
}

// slotPhone is one phone mention on a contact slot.
type slotPhone struct {
	Number  string
	Label   string
	Primary bool
}

// slot is one contact mention extracted from a record, in input order.
type slot struct {
	Seq       int
	FirstName string
	LastName  string
	NameKey   string

	Emails      []slotEmail
	Phones      []slotPhone
	ProfileURL  string
	ProfileName string

	Role       string
	Title      string
	LeadStatus model.LeadStatus
	UserRef    string
	Details    map[string]any

	OrgName  string
	AssetKey *model.AssetKey
}

// identityEmail returns the slot's personal email, the one that carries
// identity. Secondary emails link but never resolve.
func (s *slot) identityEmail() string {
	for _, e := range s.Emails {
		if e.Label != "secondary" {
			return e.Address
		}
	}
	return ""
}

// hasIdentity reports whether the slot carries any resolvable identifier.
func (s *slot) hasIdentity() bool {
	return s.ProfileURL != "" || len(s.Emails) > 0 || len(s.Phones) > 0
}

// emailState tracks the merged channel status for one address across all
// mentions in the batch. A non-active status always beats active.
type emailState struct {
	Status   model.ChannelStatus
	Metadata map[string]any
}

// orgVotes accumulates descriptive-field votes for one organization.
type orgVotes struct {
	Name    string
	OrgType string
	Fields  map[string]*voteSet
	Details map[string]*voteSet
}

func (o *orgVotes) field(name string) *voteSet {
	vs, ok := o.Fields[name]
	if !ok {
		vs = newVoteSet()
		o.Fields[name] = vs
	}
	return vs
}

func (o *orgVotes) detail(name string) *voteSet {
	vs, ok := o.Details[name]
	if !ok {
		vs = newVoteSet()
		o.Details[name] = vs
	}
	return vs
}

// assetState holds an asset's first-mention descriptive fields.
type assetState struct {
	Key     model.AssetKey
	City    string
	State   string
	Zip     string
	Details map[string]any
}

type assetPhoneLink struct {
	Asset model.AssetKey
	Phone string
}

type assetOrgLink struct {
	Asset model.AssetKey
	Org   string
	Role  string
}

// collected is the phase-1 output: every unique channel, organization,
// and asset mentioned in the batch, plus the ordered contact slots.
type collected struct {
	Records int
	Slots   []*slot

	Phones     map[string]bool
	PhoneOrder []string

	Emails     map[string]*emailState
	EmailOrder []string

	Profiles     map[string]string // url -> display name (first mention)
	ProfileOrder []string

	Orgs     map[string]*orgVotes
	OrgOrder []string

	Assets     map[model.AssetKey]*assetState
	AssetOrder []model.AssetKey

	AssetPhones []assetPhoneLink
	AssetOrgs   []assetOrgLink
}

// collector runs the single collection pass over raw records.
type collector struct {
	spec *source.BatchSpec
	out  *collected
	seen map[string]bool // in-run dedup for asset links
}

func newCollector(spec *source.BatchSpec) *collector {
	return &collector{
		spec: spec,
		out: &collected{
			Phones:   make(map[string]bool),
			Emails:   make(map[string]*emailState),
			Profiles: make(map[string]string),
			Orgs:     make(map[string]*orgVotes),
			Assets:   make(map[model.AssetKey]*assetState),
		},
		seen: make(map[string]bool),
	}
}

func (c *collector) result() *collected { return c.out }

// add processes one raw record: the record's asset and organization, its
// contact slots, and any orphan asset-level phones.
func (c *collector) add(rec source.RawRecord) {
	c.out.Records++

	assetKey := c.addAsset(rec)
	orgName := c.addOrganization(rec)

	if assetKey != nil && orgName != "" && c.spec.Organization.Role != "" {
		linkKey := store.Key("ao", assetKey.Name, assetKey.Address, orgName)
		if !c.seen[linkKey] {
			c.seen[linkKey] = true
			c.out.AssetOrgs = append(c.out.AssetOrgs, assetOrgLink{
				Asset: *assetKey,
				Org:   orgName,
				Role:  c.spec.Organization.Role,
			})
		}
	}

	contactPhones := make(map[string]bool)
	for _, cm := range c.spec.Contacts {
		s := c.addSlot(rec, cm, assetKey, orgName)
		if s == nil {
			continue
		}
		for _, p := range s.Phones {
			contactPhones[p.Number] = true
		}
	}

	// Asset-level phones not carried by any contact on the same record
	// stay reachable through the asset itself.
	if assetKey != nil && c.spec.Asset != nil {
		for _, col := range c.spec.Asset.Phones {
			number := normalize.Phone(rec[col])
			if number == "" {
				continue
			}
			c.addPhone(number)
			if contactPhones[number] {
				continue
			}
			linkKey := store.Key("ap", assetKey.Name, assetKey.Address, number)
			if !c.seen[linkKey] {
				c.seen[linkKey] = true
				c.out.AssetPhones = append(c.out.AssetPhones, assetPhoneLink{
					Asset: *assetKey,
					Phone: number,
				})
			}
		}
	}
}

func (c *collector) addAsset(rec source.RawRecord) *model.AssetKey {
	am := c.spec.Asset
	if am == nil {
		return nil
	}
	name := normalize.CleanString(rec[am.Name])
	if name == "" {
		return nil
	}
	key := model.AssetKey{Name: name, Address: normalize.CleanString(rec[am.Address])}
	if _, ok := c.out.Assets[key]; !ok {
		st := &assetState{
			Key:     key,
			City:    normalize.CleanString(rec[am.City]),
			State:   normalize.CleanString(rec[am.State]),
			Zip:     normalize.CleanString(rec[am.Zip]),
			Details: map[string]any{},
		}
		for detail, col := range am.Details {
			if v := normalize.CleanString(rec[col]); v != "" {
				st.Details[detail] = v
			}
		}
		c.out.Assets[key] = st
		c.out.AssetOrder = append(c.out.AssetOrder, key)
	}
	return &key
}

func (c *collector) addOrganization(rec source.RawRecord) string {
	om := c.spec.Organization
	if om == nil {
		return ""
	}
	name := normalize.CleanString(rec[om.Name])
	if placeholderOrgNames[strings.ToLower(name)] {
		return ""
	}
	ov, ok := c.out.Orgs[name]
	if !ok {
		ov = &orgVotes{
			Name:    name,
			OrgType: om.OrgType,
			Fields:  make(map[string]*voteSet),
			Details: make(map[string]*voteSet),
		}
		c.out.Orgs[name] = ov
		c.out.OrgOrder = append(c.out.OrgOrder, name)
	}
	for field, col := range om.Fields {
		val := normalize.CleanString(rec[col])
		if field == "company_email" {
			val = normalize.Email(rec[col])
		}
		ov.field(field).add(val)
	}
	for detail, col := range om.Details {
		ov.detail(detail).add(normalize.CleanString(rec[col]))
	}
	return name
}

func (c *collector) addSlot(rec source.RawRecord, cm source.ContactMapping, assetKey *model.AssetKey, orgName string) *slot {
	first := normalize.CleanString(rec[cm.FirstName])
	last := normalize.CleanString(rec[cm.LastName])
	if first == "" && last == "" && cm.FullName != "" {
		first, last = normalize.SplitName(rec[cm.FullName])
	}

	s := &slot{
		Seq:       len(c.out.Slots),
		FirstName: first,
		LastName:  last,
		NameKey:   normalize.Name(first, last),
		Role:      cm.Role,
		Title:     normalize.CleanString(rec[cm.Title]),
		UserRef:   normalize.CleanString(rec[cm.UserRef]),
		Details:   map[string]any{},
		OrgName:   orgName,
		AssetKey:  assetKey,
	}

	s.LeadStatus = parseLeadStatus(rec[cm.LeadStatus], cm.DefaultStatus)

	emailStatus, emailMeta := parseEmailStatus(rec[cm.EmailStatus])
	for _, em := range cm.Emails {
		addr := normalize.Email(rec[em.Column])
		if addr == "" {
			continue
		}
		s.Emails = append(s.Emails, slotEmail{Address: addr, Label: em.Label, Primary: em.Primary})
		c.addEmail(addr, emailStatus, emailMeta)
	}
	for _, pm := range cm.Phones {
		number := normalize.Phone(rec[pm.Column])
		if number == "" {
			continue
		}
		s.Phones = append(s.Phones, slotPhone{Number: number, Label: pm.Label, Primary: pm.Primary})
		c.addPhone(number)
	}
	if cm.Profile != nil {
		s.ProfileURL = normalize.ProfileURL(rec[cm.Profile.URL])
		s.ProfileName = normalize.CleanString(rec[cm.Profile.Name])
		if s.ProfileURL != "" {
			if _, ok := c.out.Profiles[s.ProfileURL]; !ok {
				c.out.Profiles[s.ProfileURL] = s.ProfileName
				c.out.ProfileOrder = append(c.out.ProfileOrder, s.ProfileURL)
			}
		}
	}

	for detail, col := range cm.Details {
		if v := normalize.CleanString(rec[col]); v != "" {
			s.Details[detail] = v
		}
	}
	if c.spec.Source != "" {
		s.Details["import_source"] = c.spec.Source
	}

	if s.NameKey == "" && !s.hasIdentity() {
		return nil
	}
	c.out.Slots = append(c.out.Slots, s)
	return s
}

func (c *collector) addPhone(number string) {
	if !c.out.Phones[number] {
		c.out.Phones[number] = true
		c.out.PhoneOrder = append(c.out.PhoneOrder, number)
	}
}

func (c *collector) addEmail(addr string, status model.ChannelStatus, meta map[string]any) {
	st, ok := c.out.Emails[addr]
	if !ok {
		st = &emailState{Status: model.ChannelActive, Metadata: map[string]any{}}
		c.out.Emails[addr] = st
		c.out.EmailOrder = append(c.out.EmailOrder, addr)
	}
	if status != model.ChannelActive && st.Status == model.ChannelActive {
		st.Status = status
		for k, v := range meta {
			st.Metadata[k] = v
		}
	}
}

// parseLeadStatus reads a status cell, falling back to the mapping's
// default and then to "new". Cell values are matched case-insensitively
// with spaces collapsed to underscores ("Do Not Contact" works).
func parseLeadStatus(raw, fallback string) model.LeadStatus {
	s := normalize.CleanString(raw)
	s = strings.ReplaceAll(strings.ToLower(s), " ", "_")
	if st := model.LeadStatus(s); st.Valid() {
		return st
	}
	if st := model.LeadStatus(fallback); st.Valid() {
		return st
	}
	return model.LeadNew
}

// parseEmailStatus interprets a source bounce/suppression flag cell.
func parseEmailStatus(raw string) (model.ChannelStatus, map[string]any) {
	s := strings.ToLower(normalize.CleanString(raw))
	if s == "" {
		return model.ChannelActive, nil
	}
	switch {
	case strings.Contains(s, "bounce"), strings.Contains(s, "invalid"):
		return model.ChannelBounced, map[string]any{"suppression_reason": s}
	case strings.Contains(s, "suppress"), strings.Contains(s, "unsubscribe"),
		strings.Contains(s, "opt out"), strings.Contains(s, "opt-out"),
		strings.Contains(s, "do not"):
		return model.ChannelSuppressed, map[string]any{"suppression_reason": s}
	default:
		return model.ChannelActive, nil
	}
}
