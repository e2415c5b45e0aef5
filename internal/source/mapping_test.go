package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
name: qozb-2026
tag: qozb-2026
source: QOZB Research 2026
sheet: Contacts
asset:
  name: Property Name
  address: Property Address
  city: City
  state: State
  zip: Zip
  details:
    market: Market
    units: Units
  phones:
    - Property Phone
organization:
  name: Owner Company
  org_type: owner
  role: owner
  fields:
    website: Website
    city: Owner City
  details:
    aum: AUM
contacts:
  - role: owner
    first_name: Owner First
    last_name: Owner Last
    title: Title
    default_status: new
    emails:
      - column: Owner Email
        label: personal
        primary: true
      - column: Owner Email 2
        label: secondary
    phones:
      - column: Owner Phone
        label: mobile
        primary: true
    profile:
      url: LinkedIn
    details:
      location: Owner Location
  - role: manager
    full_name: Manager Name
    phones:
      - column: Manager Phone
`

func TestLoadSpec_Sample(t *testing.T) {
	path := writeTempFile(t, "qozb.yaml", sampleSpec)

	spec, err := LoadSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "qozb-2026", spec.Name)
	assert.Equal(t, "Contacts", spec.Sheet)
	require.NotNil(t, spec.Asset)
	assert.Equal(t, "Property Name", spec.Asset.Name)
	assert.Equal(t, "Market", spec.Asset.Details["market"])
	require.NotNil(t, spec.Organization)
	assert.Equal(t, "owner", spec.Organization.OrgType)
	require.Len(t, spec.Contacts, 2)
	assert.True(t, spec.Contacts[0].Emails[0].Primary)
	assert.Equal(t, "secondary", spec.Contacts[0].Emails[1].Label)
	assert.Equal(t, "Manager Name", spec.Contacts[1].FullName)
}

func TestSpecValidate_MissingName(t *testing.T) {
	err := (&BatchSpec{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestSpecValidate_ContactWithoutNameColumns(t *testing.T) {
	spec := &BatchSpec{
		Name:     "bad",
		Contacts: []ContactMapping{{Role: "owner"}},
	}
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name columns")
}

func TestSpecValidate_EmailWithoutColumn(t *testing.T) {
	spec := &BatchSpec{
		Name: "bad",
		Contacts: []ContactMapping{{
			FirstName: "First",
			Emails:    []ChannelMapping{{Label: "personal"}},
		}},
	}
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a column")
}
