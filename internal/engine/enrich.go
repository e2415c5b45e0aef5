package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contacts-cli/internal/store"
)

// detailCarryOver lists the detail keys a batch may add to an existing
// person. Anything else on a slot stays out of persisted rows, so a
// noisy source column cannot pollute the whole graph.
var detailCarryOver = []string{
	"provenance",
	"import_source",
	"alma_mater",
	"location",
	"company",
	"notes",
}

// insertPeople is the first half of phase 4: batch-insert the pending
// people and rewrite every provisional slot binding to the real ID.
func (r *run) insertPeople(ctx context.Context, res *resolution) error {
	if len(res.pending) == 0 {
		return nil
	}

	recs := make([]store.Record, 0, len(res.pending))
	now := time.Now().UTC()
	for _, p := range res.pending {
		recs = append(recs, store.Record{
			"first_name":  p.FirstName,
			"last_name":   p.LastName,
			"lead_status": string(p.LeadStatus),
			"tags":        p.Tags,
			"user_ref":    nullable(p.UserRef),
			"details":     p.Details,
			"created_at":  now,
			"updated_at":  now,
		})
	}

	ids, err := r.st.Insert(ctx, store.TablePeople, recs)
	if err != nil {
		return eris.Wrap(err, "engine: insert people")
	}
	if len(ids) != len(res.pending) {
		return eris.Errorf("engine: inserted %d people, want %d", len(ids), len(res.pending))
	}
	r.stats.Table(store.TablePeople).Inserted += len(ids)

	// Provisional IDs are -(index+1); map them to the assigned rows.
	realID := func(pid int64) int64 {
		if pid < 0 {
			return ids[-pid-1]
		}
		return pid
	}
	for seq, pid := range res.slotPerson {
		res.slotPerson[seq] = realID(pid)
	}
	remapIndex(res.index.byProfile, realID)
	remapIndex(res.index.byEmail, realID)
	remapIndex(res.index.byPhoneName, realID)

	return nil
}

// enrichPeople is the second half of phase 4: for every slot that
// resolved to a persisted person, compute the minimal update payload and
// apply it. Merges are monotone, so an empty payload means the store
// already subsumes the slot.
func (r *run) enrichPeople(ctx context.Context, col *collected, res *resolution) error {
	// Group slot contributions per person first; a person mentioned
	// three times gets one update, not three.
	merged := make(map[int64]*pendingPerson)
	var order []int64
	for _, s := range col.Slots {
		pid, ok := res.slotPerson[s.Seq]
		if !ok {
			continue
		}
		person, exists := res.people[pid]
		if !exists {
			continue // inserted this run, already complete
		}
		contrib, ok := merged[pid]
		if !ok {
			contrib = &pendingPerson{
				LeadStatus: person.LeadStatus,
				Tags:       person.Tags,
				UserRef:    person.UserRef,
				Details:    copyMap(person.Details),
			}
			merged[pid] = contrib
			order = append(order, pid)
		}
		mergeSlotIntoPending(contrib, s, r.slotTags())
	}

	updated := 0
	for _, pid := range order {
		person := res.people[pid]
		patch := enrichmentPatch(person, merged[pid])
		if len(patch) == 0 {
			continue
		}
		patch["updated_at"] = time.Now().UTC()
		if err := r.st.Update(ctx, store.TablePeople, pid, patch); err != nil {
			return eris.Wrap(err, "engine: enrich person")
		}
		updated++
	}
	r.stats.EnrichedPeople = updated
	r.stats.Table(store.TablePeople).Updated += updated

	r.log.Info("enriched people", zap.Int("updated", updated), zap.Int("matched", len(order)))
	return nil
}

// enrichmentPatch diffs the merged contribution against the persisted
// row. Only changed columns appear in the patch.
func enrichmentPatch(person *personRow, contrib *pendingPerson) store.Record {
	patch := store.Record{}

	if contrib.LeadStatus != person.LeadStatus {
		patch["lead_status"] = string(contrib.LeadStatus)
	}
	if len(contrib.Tags) > len(person.Tags) {
		patch["tags"] = contrib.Tags
	}
	if person.UserRef == "" && contrib.UserRef != "" {
		patch["user_ref"] = contrib.UserRef
	}

	details := copyMap(person.Details)
	changed := false
	for _, key := range detailCarryOver {
		v, ok := contrib.Details[key]
		if !ok {
			continue
		}
		// Shallow merge, incoming value wins on conflict.
		if cur, exists := details[key]; !exists || asString(cur) != asString(v) {
			details[key] = v
			changed = true
		}
	}
	if changed {
		patch["details"] = details
	}

	return patch
}

func remapIndex(m map[string]int64, realID func(int64) int64) {
	for k, v := range m {
		if v < 0 {
			m[k] = realID(v)
		}
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
