package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contacts-cli/internal/model"
	"github.com/sells-group/contacts-cli/internal/source"
	"github.com/sells-group/contacts-cli/internal/store"
)

func runBatch(t *testing.T, e *Engine, spec *source.BatchSpec, recs []source.RawRecord) *model.ImportStats {
	t.Helper()
	recCh := make(chan source.RawRecord, len(recs))
	errCh := make(chan error, 1)
	for _, rec := range recs {
		recCh <- rec
	}
	close(recCh)
	close(errCh)
	stats, err := e.Run(context.Background(), spec, recCh, errCh)
	require.NoError(t, err)
	return stats
}

func countRows(t *testing.T, st store.Store, table string, cols ...string) []store.Record {
	t.Helper()
	if len(cols) == 0 {
		cols = []string{"id"}
	}
	rows, err := st.FetchAll(context.Background(), table, cols)
	require.NoError(t, err)
	return rows
}

func TestRun_AcmeScenario(t *testing.T) {
	st := store.NewMemory()
	e := New(st, Options{})

	spec := rosterSpec()
	recs := []source.RawRecord{
		{"Company": "Acme LLC", "First": "John", "Last": "Smith", "Phone": "5551234567"},
		{"Company": "Acme LLC", "First": "John", "Last": "Smith", "Phone": "5551234567"},
		{"Company": "Acme Llc", "First": "Jane", "Last": "Doe", "Phone": "5559999999"},
	}

	stats := runBatch(t, e, spec, recs)
	assert.Equal(t, 3, stats.RecordsScanned)
	assert.Equal(t, 2, stats.NewPeople)

	// Exact-name identity: "Acme LLC" and "Acme Llc" are two organizations.
	orgs := countRows(t, st, store.TableOrgs, "name")
	assert.Len(t, orgs, 2)

	people := countRows(t, st, store.TablePeople, "first_name", "last_name")
	assert.Len(t, people, 2)

	assert.Len(t, countRows(t, st, store.TablePersonPhones), 2)
	assert.Len(t, countRows(t, st, store.TablePersonOrgs), 2)

	// Re-running the batch yields no additional rows anywhere.
	before := map[string]int{}
	for _, table := range []string{
		store.TablePeople, store.TableOrgs, store.TablePhones,
		store.TablePersonPhones, store.TablePersonOrgs,
	} {
		before[table] = len(countRows(t, st, table))
	}

	again := runBatch(t, New(st, Options{}), spec, recs)
	assert.Equal(t, 0, again.NewPeople)
	assert.Equal(t, 3, again.ReusedPeople)

	for table, n := range before {
		assert.Len(t, countRows(t, st, table), n, "table %s grew on rerun", table)
	}
}

func TestRun_PhoneAloneNeverMerges(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "John", "Last": "Smith", "Phone": "5551234567"},
		{"First": "Jane", "Last": "Doe", "Phone": "5551234567"},
	})

	assert.Len(t, countRows(t, st, store.TablePeople), 2)
	assert.Len(t, countRows(t, st, store.TablePhones), 1)
}

func TestRun_PhonePlusNameMerges(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "John", "Last": "Smith", "Phone": "5551234567"},
		{"First": "john", "Last": "SMITH", "Phone": "(555) 123-4567"},
	})

	assert.Len(t, countRows(t, st, store.TablePeople), 1)
}

func TestRun_ProfileBeatsEmail(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	// Person A carries the profile; person B carries the email.
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Alice", "Last": "Adams", "LinkedIn": "https://linkedin.com/in/alice"},
		{"First": "Bob", "Last": "Brown", "Email": "shared@office.com"},
	})
	require.Len(t, countRows(t, st, store.TablePeople), 2)

	// A slot carrying both resolves through the profile, so no third
	// person appears and the chain never reaches the email.
	stats := runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Alice", "Last": "A", "LinkedIn": "https://linkedin.com/in/alice/", "Email": "shared@office.com"},
	})
	assert.Equal(t, 0, stats.NewPeople)
	assert.Equal(t, 1, stats.ReusedPeople)
	assert.Len(t, countRows(t, st, store.TablePeople), 2)
}

func TestRun_EmailMatchEnrichesExisting(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Status": "cold"},
	})

	spec2 := rosterSpec()
	spec2.Tag = "second-batch"
	stats := runBatch(t, New(st, Options{}), spec2, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Status": "hot", "Rep": "kara"},
	})
	assert.Equal(t, 0, stats.NewPeople)
	assert.Equal(t, 1, stats.EnrichedPeople)

	people := countRows(t, st, store.TablePeople, "lead_status", "tags", "user_ref")
	require.Len(t, people, 1)
	assert.Equal(t, "hot", people[0]["lead_status"])
	assert.Equal(t, []string{"roster-2026", "second-batch"}, asStringSlice(people[0]["tags"]))
	assert.Equal(t, "kara", people[0]["user_ref"])
}

func TestRun_WarmthNeverDowngrades(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Status": "Do Not Contact"},
	})
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Status": "hot"},
	})

	people := countRows(t, st, store.TablePeople, "lead_status")
	require.Len(t, people, 1)
	assert.Equal(t, "do_not_contact", people[0]["lead_status"])
}

func TestRun_NamelessSlotNeverBecomesPerson(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	stats := runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"Email": "info@building.com", "Phone": "5550001111"},
	})
	assert.Equal(t, 1, stats.SkippedNameless)
	assert.Empty(t, countRows(t, st, store.TablePeople))
	// The channels still exist for other batches to link against.
	assert.Len(t, countRows(t, st, store.TableEmails), 1)
	assert.Len(t, countRows(t, st, store.TablePhones), 1)
}

func TestRun_MajorityVoteOrgFields(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"Company": "Acme LLC", "Company City": "Austin", "First": "A", "Last": "One"},
		{"Company": "Acme LLC", "Company City": "Denver", "First": "B", "Last": "Two"},
		{"Company": "Acme LLC", "Company City": "Denver", "First": "C", "Last": "Three"},
	})

	orgs := countRows(t, st, store.TableOrgs, "name", "city")
	require.Len(t, orgs, 1)
	assert.Equal(t, "Denver", orgs[0]["city"])
}

func TestRun_SecondaryEmailLinksButNeverResolves(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	// Both addresses link to Jane.
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Email 2": "assistant@roe.com"},
	})
	assert.Len(t, countRows(t, st, store.TablePersonEmails), 2)

	// A slot carrying Jane's personal address only in its secondary
	// column does not resolve through it: identity uses the personal
	// email alone, so Sam becomes a new person.
	stats := runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Sam", "Last": "Hill", "Email 2": "jane@roe.com"},
	})
	assert.Equal(t, 1, stats.NewPeople)
	assert.Len(t, countRows(t, st, store.TablePeople), 2)
}

func TestRun_AllowListedDetailOverwrites(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()
	spec.Contacts[0].Details = map[string]string{"location": "Location"}

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Location": "NYC"},
	})
	stats := runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Location": "LA"},
	})
	assert.Equal(t, 1, stats.EnrichedPeople)

	// Carry-over details merge shallowly with the new batch winning.
	people := countRows(t, st, store.TablePeople, "details")
	require.Len(t, people, 1)
	assert.Equal(t, "LA", asMap(people[0]["details"])["location"])
}

func TestRun_ConnectingSlotRepointsIdentifiers(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	// Ann owns the shared email, Bob owns the profile.
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Ann", "Last": "Lee", "Email": "shared@roe.com"},
		{"First": "Bob", "Last": "Ray", "LinkedIn": "https://linkedin.com/in/bobray"},
	})
	require.Len(t, countRows(t, st, store.TablePeople), 2)

	// The first slot connects both identifiers and resolves through the
	// profile, re-pointing the email at Bob. The second slot then follows
	// the email to Bob, so his status warms while Ann's stays put.
	stats := runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Bob", "Last": "Ray", "LinkedIn": "https://linkedin.com/in/bobray", "Email": "shared@roe.com"},
		{"First": "Dana", "Last": "Cole", "Email": "shared@roe.com", "Status": "hot"},
	})
	assert.Equal(t, 0, stats.NewPeople)
	assert.Equal(t, 2, stats.ReusedPeople)

	people := countRows(t, st, store.TablePeople, "first_name", "lead_status")
	require.Len(t, people, 2)
	byName := map[string]string{}
	for _, p := range people {
		byName[asString(p["first_name"])] = asString(p["lead_status"])
	}
	assert.Equal(t, "hot", byName["Bob"])
	assert.Equal(t, "new", byName["Ann"])
}

func TestRun_InvalidSpecDrainsStream(t *testing.T) {
	st := store.NewMemory()
	recCh := make(chan source.RawRecord)
	errCh := make(chan error, 1)
	close(errCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			recCh <- source.RawRecord{"First": "Jane"}
		}
		close(recCh)
	}()

	_, err := New(st, Options{}).Run(context.Background(), &source.BatchSpec{}, recCh, errCh)
	require.Error(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine still blocked after Run returned")
	}
}

func TestRun_BouncedEmailStatusSticks(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com"},
	})
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com", "Email Status": "bounced"},
	})
	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{"First": "Jane", "Last": "Roe", "Email": "jane@roe.com"},
	})

	emails := countRows(t, st, store.TableEmails, "address", "status")
	require.Len(t, emails, 1)
	assert.Equal(t, "bounced", emails[0]["status"])
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	stats := runBatch(t, New(st, Options{DryRun: true}), spec, []source.RawRecord{
		{"Company": "Acme LLC", "First": "John", "Last": "Smith", "Phone": "5551234567"},
		{"Company": "Acme LLC", "First": "Jane", "Last": "Doe", "Email": "jane@doe.com"},
	})

	assert.True(t, stats.DryRun)
	assert.Equal(t, 2, stats.RecordsScanned)
	assert.Equal(t, 2, stats.NewPeople)
	assert.Equal(t, int64(0), st.Mutations())
	assert.Empty(t, countRows(t, st, store.TablePeople))
}

func TestRun_AssetRolesAndOrphanPhones(t *testing.T) {
	st := store.NewMemory()
	spec := rosterSpec()

	runBatch(t, New(st, Options{}), spec, []source.RawRecord{
		{
			"Property":       "Maple Lofts",
			"Property Phone": "5187770000",
			"Company":        "Acme LLC",
			"First":          "Jane",
			"Last":           "Roe",
			"Phone":          "5185550199",
		},
	})

	assert.Len(t, countRows(t, st, store.TableAssets), 1)
	assert.Len(t, countRows(t, st, store.TableAssetPhones), 1)
	assert.Len(t, countRows(t, st, store.TableAssetOrgs), 1)

	roles := countRows(t, st, store.TablePersonAssets, "role")
	require.Len(t, roles, 1)
	assert.Equal(t, "owner", roles[0]["role"])
}
