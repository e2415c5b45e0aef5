package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contacts-cli/internal/store"
)

// junctionBatch accumulates deduplicated junction rows for one table.
// The natural key guards against duplicates inside the run; the store's
// insert-or-ignore guards against rows from earlier runs.
type junctionBatch struct {
	table   string
	keyCols []string
	rows    []store.Record
	seen    map[string]bool
}

func newJunctionBatch(table string, keyCols ...string) *junctionBatch {
	return &junctionBatch{table: table, keyCols: keyCols, seen: make(map[string]bool)}
}

func (b *junctionBatch) add(rec store.Record) {
	key := store.RecordKey(rec, b.keyCols)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.rows = append(b.rows, rec)
}

// writeRelationships is phase 5: build every junction row from the
// resolved IDs and upsert them by natural key.
func (r *run) writeRelationships(ctx context.Context, col *collected, c *caches, res *resolution) error {
	personPhones := newJunctionBatch(store.TablePersonPhones, "person_id", "phone_id")
	personEmails := newJunctionBatch(store.TablePersonEmails, "person_id", "email_id")
	personProfs := newJunctionBatch(store.TablePersonProfs, "person_id", "profile_id")
	personOrgs := newJunctionBatch(store.TablePersonOrgs, "person_id", "organization_id")
	personAssets := newJunctionBatch(store.TablePersonAssets, "person_id", "asset_id", "role")
	assetPhones := newJunctionBatch(store.TableAssetPhones, "asset_id", "phone_id")
	assetOrgs := newJunctionBatch(store.TableAssetOrgs, "asset_id", "organization_id", "role")

	for _, s := range col.Slots {
		pid, ok := res.slotPerson[s.Seq]
		if !ok {
			continue
		}
		for _, p := range s.Phones {
			personPhones.add(store.Record{
				"person_id":  pid,
				"phone_id":   c.phoneIDs[p.Number],
				"label":      p.Label,
				"is_primary": p.Primary,
				"source":     r.spec.Source,
			})
		}
		for _, e := range s.Emails {
			personEmails.add(store.Record{
				"person_id":  pid,
				"email_id":   c.emailIDs[e.Address],
				"label":      e.Label,
				"is_primary": e.Primary,
				"source":     r.spec.Source,
			})
		}
		if s.ProfileURL != "" {
			personProfs.add(store.Record{
				"person_id":  pid,
				"profile_id": c.profileIDs[s.ProfileURL],
				"is_primary": true,
				"source":     r.spec.Source,
			})
		}
		if s.OrgName != "" {
			if orgID, ok := c.orgIDs[s.OrgName]; ok {
				personOrgs.add(store.Record{
					"person_id":       pid,
					"organization_id": orgID,
					"title":           s.Title,
					"is_primary":      false,
				})
			}
		}
		if s.AssetKey != nil && s.Role != "" {
			if assetID, ok := c.assetIDs[store.Key(s.AssetKey.Name, s.AssetKey.Address)]; ok {
				personAssets.add(store.Record{
					"person_id": pid,
					"asset_id":  assetID,
					"role":      s.Role,
				})
			}
		}
	}

	for _, link := range col.AssetPhones {
		assetID, ok := c.assetIDs[store.Key(link.Asset.Name, link.Asset.Address)]
		if !ok {
			continue
		}
		assetPhones.add(store.Record{
			"asset_id": assetID,
			"phone_id": c.phoneIDs[link.Phone],
			"label":    "main",
			"source":   r.spec.Source,
		})
	}
	for _, link := range col.AssetOrgs {
		assetID, okA := c.assetIDs[store.Key(link.Asset.Name, link.Asset.Address)]
		orgID, okO := c.orgIDs[link.Org]
		if !okA || !okO {
			continue
		}
		assetOrgs.add(store.Record{
			"asset_id":        assetID,
			"organization_id": orgID,
			"role":            link.Role,
			"source":          r.spec.Source,
		})
	}

	for _, batch := range []*junctionBatch{
		personPhones, personEmails, personProfs, personOrgs,
		personAssets, assetPhones, assetOrgs,
	} {
		if len(batch.rows) == 0 {
			continue
		}
		n, err := r.st.UpsertIgnore(ctx, batch.table, batch.rows, batch.keyCols)
		if err != nil {
			return eris.Wrapf(err, "engine: write %s", batch.table)
		}
		r.stats.Table(batch.table).Inserted += int(n)
	}

	r.log.Info("wrote relationships",
		zap.Int("person_phones", len(personPhones.rows)),
		zap.Int("person_emails", len(personEmails.rows)),
		zap.Int("person_profiles", len(personProfs.rows)),
		zap.Int("person_organizations", len(personOrgs.rows)),
		zap.Int("person_assets", len(personAssets.rows)),
		zap.Int("asset_phones", len(assetPhones.rows)),
		zap.Int("asset_organizations", len(assetOrgs.rows)),
	)
	return nil
}
