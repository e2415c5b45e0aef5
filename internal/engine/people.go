package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contacts-cli/internal/model"
	"github.com/sells-group/contacts-cli/internal/normalize"
	"github.com/sells-group/contacts-cli/internal/store"
)

// personIndex maps identifiers to person IDs. Persisted people carry
// positive IDs; people pending insert in this run carry negative ones
// (see pendingPerson). Each binding follows the most recent resolution
// that carried the identifier, so a slot connecting two identifiers
// pulls later slots toward the person it resolved to.
type personIndex struct {
	byProfile   map[string]int64
	byEmail     map[string]int64
	byPhoneName map[string]int64 // store.Key(number, name key)
}

func newPersonIndex() *personIndex {
	return &personIndex{
		byProfile:   make(map[string]int64),
		byEmail:     make(map[string]int64),
		byPhoneName: make(map[string]int64),
	}
}

// pendingPerson is a person discovered in this run, accumulated across
// every slot that resolves to it before the batch insert.
type pendingPerson struct {
	FirstName  string
	LastName   string
	LeadStatus model.LeadStatus
	Tags       []string
	UserRef    string
	Details    map[string]any
}

// personRow is a persisted person loaded for enrichment.
type personRow struct {
	ID         int64
	FirstName  string
	LastName   string
	LeadStatus model.LeadStatus
	Tags       []string
	UserRef    string
	Details    map[string]any
}

// resolution is the phase-3 output: every slot bound to either a pending
// or persisted person, plus the accumulated pending people.
type resolution struct {
	index   *personIndex
	people  map[int64]*personRow
	pending []*pendingPerson
	// slotPerson maps slot seq to person ID (negative while pending).
	slotPerson map[int]int64
}

// pendingID converts a pending slice index into its provisional ID.
func pendingID(i int) int64 { return -int64(i) - 1 }

// seedPersonIndex rebuilds identifier maps from the persisted junctions.
// Channel caches must already be loaded so junction rows can be joined
// back to their natural values.
func (r *run) seedPersonIndex(ctx context.Context, c *caches) (*resolution, error) {
	res := &resolution{
		index:      newPersonIndex(),
		people:     make(map[int64]*personRow),
		slotPerson: make(map[int]int64),
	}

	phoneByID := invert(c.phoneIDs)
	emailByID := invert(c.emailIDs)
	profileByID := invert(c.profileIDs)

	var (
		personProfiles []store.Record
		personEmails   []store.Record
		personPhones   []store.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.st.FetchAll(gctx, store.TablePeople,
			[]string{"id", "first_name", "last_name", "lead_status", "tags", "user_ref", "details"})
		if err != nil {
			return err
		}
		for _, row := range rows {
			id, err := asInt64(row["id"])
			if err != nil {
				return err
			}
			res.people[id] = &personRow{
				ID:         id,
				FirstName:  asString(row["first_name"]),
				LastName:   asString(row["last_name"]),
				LeadStatus: model.LeadStatus(asString(row["lead_status"])),
				Tags:       asStringSlice(row["tags"]),
				UserRef:    asString(row["user_ref"]),
				Details:    asMap(row["details"]),
			}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		personProfiles, err = r.st.FetchAll(gctx, store.TablePersonProfs, []string{"person_id", "profile_id"})
		return err
	})
	g.Go(func() error {
		var err error
		personEmails, err = r.st.FetchAll(gctx, store.TablePersonEmails, []string{"person_id", "email_id"})
		return err
	})
	g.Go(func() error {
		var err error
		personPhones, err = r.st.FetchAll(gctx, store.TablePersonPhones, []string{"person_id", "phone_id"})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: seed person index")
	}

	for _, row := range personProfiles {
		pid, err := asInt64(row["person_id"])
		if err != nil {
			return nil, err
		}
		cid, err := asInt64(row["profile_id"])
		if err != nil {
			return nil, err
		}
		if url, ok := profileByID[cid]; ok {
			register(res.index.byProfile, url, pid)
		}
	}
	for _, row := range personEmails {
		pid, err := asInt64(row["person_id"])
		if err != nil {
			return nil, err
		}
		cid, err := asInt64(row["email_id"])
		if err != nil {
			return nil, err
		}
		if addr, ok := emailByID[cid]; ok {
			register(res.index.byEmail, addr, pid)
		}
	}
	for _, row := range personPhones {
		pid, err := asInt64(row["person_id"])
		if err != nil {
			return nil, err
		}
		cid, err := asInt64(row["phone_id"])
		if err != nil {
			return nil, err
		}
		number, ok := phoneByID[cid]
		if !ok {
			continue
		}
		person, ok := res.people[pid]
		if !ok {
			continue
		}
		nameKey := normalize.Name(person.FirstName, person.LastName)
		if nameKey != "" {
			register(res.index.byPhoneName, store.Key(number, nameKey), pid)
		}
	}

	return res, nil
}

// resolvePeople is phase 3: walk the slots in input order, resolve each
// through the priority chain, and register every identifier the slot
// carries. A nameless slot's channels exist in the store but the slot
// itself never becomes a person.
func (r *run) resolvePeople(ctx context.Context, col *collected, c *caches) (*resolution, error) {
	res, err := r.seedPersonIndex(ctx, c)
	if err != nil {
		return nil, err
	}

	for _, s := range col.Slots {
		if s.NameKey == "" {
			r.stats.SkippedNameless++
			continue
		}
		r.stats.Slots++

		pid, matched := r.resolveSlot(res, s)
		if !matched {
			res.pending = append(res.pending, &pendingPerson{
				FirstName:  s.FirstName,
				LastName:   s.LastName,
				LeadStatus: s.LeadStatus,
				Tags:       r.slotTags(),
				UserRef:    s.UserRef,
				Details:    copyMap(s.Details),
			})
			pid = pendingID(len(res.pending) - 1)
		} else {
			r.stats.ReusedPeople++
			if pid < 0 {
				mergeSlotIntoPending(res.pending[-pid-1], s, r.slotTags())
			}
		}
		res.slotPerson[s.Seq] = pid

		// Register every identifier present on the slot, matched or not.
		if s.ProfileURL != "" {
			register(res.index.byProfile, s.ProfileURL, pid)
		}
		for _, e := range s.Emails {
			register(res.index.byEmail, e.Address, pid)
		}
		for _, p := range s.Phones {
			register(res.index.byPhoneName, store.Key(p.Number, s.NameKey), pid)
		}
	}

	r.stats.NewPeople = len(res.pending)
	r.log.Info("resolved people",
		zap.Int("slots", r.stats.Slots),
		zap.Int("new", r.stats.NewPeople),
		zap.Int("reused", r.stats.ReusedPeople),
		zap.Int("skipped_nameless", r.stats.SkippedNameless),
	)
	return res, nil
}

// resolveSlot applies the priority chain: profile URL, then personal
// email, then (phone, normalized name). The first identifier with a
// binding wins and the chain short-circuits. A phone number alone never
// matches; it only counts together with the slot's name key.
func (r *run) resolveSlot(res *resolution, s *slot) (int64, bool) {
	if s.ProfileURL != "" {
		if pid, ok := res.index.byProfile[s.ProfileURL]; ok {
			return pid, true
		}
	}
	if addr := s.identityEmail(); addr != "" {
		if pid, ok := res.index.byEmail[addr]; ok {
			return pid, true
		}
	}
	for _, p := range s.Phones {
		if pid, ok := res.index.byPhoneName[store.Key(p.Number, s.NameKey)]; ok {
			return pid, true
		}
	}
	return 0, false
}

func (r *run) slotTags() []string {
	if r.spec.Tag == "" {
		return nil
	}
	return []string{r.spec.Tag}
}

// mergeSlotIntoPending folds a later slot into a pending person created
// earlier in the same run: warmth max, tag union, null-fill scalars,
// shallow detail merge with the later slot winning.
func mergeSlotIntoPending(p *pendingPerson, s *slot, tags []string) {
	p.LeadStatus = model.WarmerStatus(p.LeadStatus, s.LeadStatus)
	p.Tags = model.MergeTags(p.Tags, tags)
	if p.UserRef == "" {
		p.UserRef = s.UserRef
	}
	if p.FirstName == "" && p.LastName == "" {
		p.FirstName, p.LastName = s.FirstName, s.LastName
	}
	for k, v := range s.Details {
		p.Details[k] = v
	}
}

// register binds an identifier to the person most recently resolved
// with it. Re-pointing an existing binding is deliberate: a slot that
// carries two identifiers connects them, and later slots holding either
// one follow it to the person that slot resolved to.
func register(m map[string]int64, key string, pid int64) {
	m[key] = pid
}

func invert(m map[string]int64) map[int64]string {
	out := make(map[int64]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
