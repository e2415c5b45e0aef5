package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contacts-cli/internal/model"
	"github.com/sells-group/contacts-cli/internal/store"
)

// orgFieldCols are the majority-voted descriptive columns on the
// organizations table.
var orgFieldCols = []string{
	"address", "city", "state", "zip",
	"country", "website", "category", "company_email",
}

// caches map natural keys to canonical row IDs, seeded from the store
// before any write and refreshed after channel upserts so later phases
// read their own writes.
type caches struct {
	phoneIDs    map[string]int64
	emailIDs    map[string]int64
	emailStatus map[string]model.ChannelStatus
	profileIDs  map[string]int64
	orgIDs      map[string]int64
	orgRows     map[string]store.Record
	assetIDs    map[string]int64 // store.Key(name, address)
}

// seedCaches loads existing entity IDs in parallel. All fetches are
// read-only, so they can overlap freely.
func (r *run) seedCaches(ctx context.Context) (*caches, error) {
	c := &caches{
		phoneIDs:    make(map[string]int64),
		emailIDs:    make(map[string]int64),
		emailStatus: make(map[string]model.ChannelStatus),
		profileIDs:  make(map[string]int64),
		orgIDs:      make(map[string]int64),
		orgRows:     make(map[string]store.Record),
		assetIDs:    make(map[string]int64),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.loadPhoneIDs(gctx, c) })
	g.Go(func() error { return r.loadEmailIDs(gctx, c) })
	g.Go(func() error { return r.loadProfileIDs(gctx, c) })
	g.Go(func() error { return r.loadOrgRows(gctx, c) })
	g.Go(func() error { return r.loadAssetIDs(gctx, c) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *run) loadPhoneIDs(ctx context.Context, c *caches) error {
	rows, err := r.st.FetchAll(ctx, store.TablePhones, []string{"id", "number"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id, err := asInt64(row["id"])
		if err != nil {
			return err
		}
		c.phoneIDs[asString(row["number"])] = id
	}
	return nil
}

func (r *run) loadEmailIDs(ctx context.Context, c *caches) error {
	rows, err := r.st.FetchAll(ctx, store.TableEmails, []string{"id", "address", "status"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id, err := asInt64(row["id"])
		if err != nil {
			return err
		}
		addr := asString(row["address"])
		c.emailIDs[addr] = id
		c.emailStatus[addr] = model.ChannelStatus(asString(row["status"]))
	}
	return nil
}

func (r *run) loadProfileIDs(ctx context.Context, c *caches) error {
	rows, err := r.st.FetchAll(ctx, store.TableProfiles, []string{"id", "url"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id, err := asInt64(row["id"])
		if err != nil {
			return err
		}
		c.profileIDs[asString(row["url"])] = id
	}
	return nil
}

func (r *run) loadOrgRows(ctx context.Context, c *caches) error {
	cols := append([]string{"id", "name", "org_type", "details"}, orgFieldCols...)
	rows, err := r.st.FetchAll(ctx, store.TableOrgs, cols)
	if err != nil {
		return err
	}
	for _, row := range rows {
		id, err := asInt64(row["id"])
		if err != nil {
			return err
		}
		name := asString(row["name"])
		c.orgIDs[name] = id
		c.orgRows[name] = row
	}
	return nil
}

func (r *run) loadAssetIDs(ctx context.Context, c *caches) error {
	rows, err := r.st.FetchAll(ctx, store.TableAssets, []string{"id", "name", "address"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id, err := asInt64(row["id"])
		if err != nil {
			return err
		}
		c.assetIDs[store.Key(row["name"], row["address"])] = id
	}
	return nil
}

// resolveEntities is phase 2: upsert every unique channel, organization,
// and asset from the batch, then refresh the ID caches so every natural
// key in the batch maps to a canonical row ID.
func (r *run) resolveEntities(ctx context.Context, col *collected) (*caches, error) {
	c, err := r.seedCaches(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: seed caches")
	}

	if err := r.writePhones(ctx, col, c); err != nil {
		return nil, err
	}
	if err := r.writeEmails(ctx, col, c); err != nil {
		return nil, err
	}
	if err := r.writeProfiles(ctx, col, c); err != nil {
		return nil, err
	}
	if err := r.writeOrgs(ctx, col, c); err != nil {
		return nil, err
	}
	if err := r.writeAssets(ctx, col, c); err != nil {
		return nil, err
	}

	r.log.Info("resolved shared entities",
		zap.Int("phones", len(col.PhoneOrder)),
		zap.Int("emails", len(col.EmailOrder)),
		zap.Int("profiles", len(col.ProfileOrder)),
		zap.Int("organizations", len(col.OrgOrder)),
		zap.Int("assets", len(col.AssetOrder)),
	)
	return c, nil
}

// writePhones inserts unseen numbers. Existing rows keep their status
// and metadata untouched.
func (r *run) writePhones(ctx context.Context, col *collected, c *caches) error {
	recs := make([]store.Record, 0, len(col.PhoneOrder))
	for _, number := range col.PhoneOrder {
		recs = append(recs, store.Record{
			"number":   number,
			"status":   string(model.ChannelActive),
			"metadata": map[string]any{},
		})
	}
	n, err := r.st.UpsertIgnore(ctx, store.TablePhones, recs, []string{"number"})
	if err != nil {
		return eris.Wrap(err, "engine: write phones")
	}
	r.stats.Table(store.TablePhones).Inserted += int(n)

	if err := r.refreshPhoneIDs(ctx, c, col.PhoneOrder); err != nil {
		return err
	}
	return nil
}

func (r *run) refreshPhoneIDs(ctx context.Context, c *caches, numbers []string) error {
	if !missingAny(c.phoneIDs, numbers) {
		return nil
	}
	if err := r.loadPhoneIDs(ctx, c); err != nil {
		return eris.Wrap(err, "engine: refresh phone ids")
	}
	return r.fillMissing(c.phoneIDs, numbers, "phone")
}

// writeEmails inserts unseen addresses with their batch-resolved status,
// then applies status downgrades to rows that were still active. Status
// moves one way: active rows can become bounced or suppressed, never the
// reverse.
func (r *run) writeEmails(ctx context.Context, col *collected, c *caches) error {
	recs := make([]store.Record, 0, len(col.EmailOrder))
	for _, addr := range col.EmailOrder {
		st := col.Emails[addr]
		recs = append(recs, store.Record{
			"address":  addr,
			"status":   string(st.Status),
			"metadata": st.Metadata,
		})
	}
	n, err := r.st.UpsertIgnore(ctx, store.TableEmails, recs, []string{"address"})
	if err != nil {
		return eris.Wrap(err, "engine: write emails")
	}
	r.stats.Table(store.TableEmails).Inserted += int(n)

	for _, addr := range col.EmailOrder {
		st := col.Emails[addr]
		existing, known := c.emailStatus[addr]
		if !known || st.Status == model.ChannelActive || existing != model.ChannelActive {
			continue
		}
		id := c.emailIDs[addr]
		if err := r.st.Update(ctx, store.TableEmails, id, store.Record{
			"status":   string(st.Status),
			"metadata": st.Metadata,
		}); err != nil {
			return eris.Wrap(err, "engine: update email status")
		}
		r.stats.Table(store.TableEmails).Updated++
	}

	if missingAny(c.emailIDs, col.EmailOrder) {
		if err := r.loadEmailIDs(ctx, c); err != nil {
			return eris.Wrap(err, "engine: refresh email ids")
		}
		if err := r.fillMissing(c.emailIDs, col.EmailOrder, "email"); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) writeProfiles(ctx context.Context, col *collected, c *caches) error {
	recs := make([]store.Record, 0, len(col.ProfileOrder))
	for _, url := range col.ProfileOrder {
		recs = append(recs, store.Record{
			"url":          url,
			"profile_name": col.Profiles[url],
			"metadata":     map[string]any{},
		})
	}
	n, err := r.st.UpsertIgnore(ctx, store.TableProfiles, recs, []string{"url"})
	if err != nil {
		return eris.Wrap(err, "engine: write profiles")
	}
	r.stats.Table(store.TableProfiles).Inserted += int(n)

	if missingAny(c.profileIDs, col.ProfileOrder) {
		if err := r.loadProfileIDs(ctx, c); err != nil {
			return eris.Wrap(err, "engine: refresh profile ids")
		}
		if err := r.fillMissing(c.profileIDs, col.ProfileOrder, "profile"); err != nil {
			return err
		}
	}
	return nil
}

// writeOrgs resolves each organization's descriptive fields by majority
// vote over the batch's mentions and upserts the winners. A field with no
// votes keeps whatever the store already has.
func (r *run) writeOrgs(ctx context.Context, col *collected, c *caches) error {
	if len(col.OrgOrder) == 0 {
		return nil
	}

	recs := make([]store.Record, 0, len(col.OrgOrder))
	for _, name := range col.OrgOrder {
		ov := col.Orgs[name]
		existing := c.orgRows[name]

		rec := store.Record{"name": name, "org_type": ov.OrgType}
		if existing != nil && ov.OrgType == "" {
			rec["org_type"] = asString(existing["org_type"])
		}
		for _, field := range orgFieldCols {
			val := ""
			if vs, ok := ov.Fields[field]; ok {
				val = vs.winner()
			}
			if val == "" && existing != nil {
				val = asString(existing[field])
			}
			rec[field] = val
		}

		details := map[string]any{}
		if existing != nil {
			for k, v := range asMap(existing["details"]) {
				details[k] = v
			}
		}
		for key, vs := range ov.Details {
			if w := vs.winner(); w != "" {
				details[key] = w
			}
		}
		rec["details"] = details

		recs = append(recs, rec)
	}

	idMap, err := r.st.UpsertBatch(ctx, store.TableOrgs, recs, []string{"name"})
	if err != nil {
		return eris.Wrap(err, "engine: write organizations")
	}
	r.stats.Table(store.TableOrgs).Upserted += len(recs)
	for name, id := range idMap {
		c.orgIDs[name] = id
	}
	return r.fillMissing(c.orgIDs, col.OrgOrder, "organization")
}

// writeAssets inserts unseen assets. Descriptive fields are captured on
// first mention and never rewritten.
func (r *run) writeAssets(ctx context.Context, col *collected, c *caches) error {
	recs := make([]store.Record, 0, len(col.AssetOrder))
	keys := make([]string, 0, len(col.AssetOrder))
	for _, key := range col.AssetOrder {
		st := col.Assets[key]
		recs = append(recs, store.Record{
			"name":    key.Name,
			"address": key.Address,
			"city":    st.City,
			"state":   st.State,
			"zip":     st.Zip,
			"details": st.Details,
		})
		keys = append(keys, store.Key(key.Name, key.Address))
	}
	n, err := r.st.UpsertIgnore(ctx, store.TableAssets, recs, []string{"name", "address"})
	if err != nil {
		return eris.Wrap(err, "engine: write assets")
	}
	r.stats.Table(store.TableAssets).Inserted += int(n)

	if missingAny(c.assetIDs, keys) {
		if err := r.loadAssetIDs(ctx, c); err != nil {
			return eris.Wrap(err, "engine: refresh asset ids")
		}
		if err := r.fillMissing(c.assetIDs, keys, "asset"); err != nil {
			return err
		}
	}
	return nil
}

func missingAny(ids map[string]int64, keys []string) bool {
	for _, k := range keys {
		if _, ok := ids[k]; !ok {
			return true
		}
	}
	return false
}

// fillMissing backfills keys the refresh did not surface. In a dry run
// nothing was written, so missing keys get synthetic negative IDs; in a
// real run a missing key means the write was lost.
func (r *run) fillMissing(ids map[string]int64, keys []string, what string) error {
	for _, k := range keys {
		if _, ok := ids[k]; ok {
			continue
		}
		if !r.dryRun {
			return eris.Errorf("engine: %s %q missing after refresh", what, k)
		}
		r.fakeID--
		ids[k] = r.fakeID
	}
	return nil
}
