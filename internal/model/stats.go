package model

// TableCounts holds per-table row activity for one ingestion run.
type TableCounts struct {
	Upserted int `json:"upserted,omitempty"`
	Inserted int `json:"inserted,omitempty"`
	Updated  int `json:"updated,omitempty"`
}

// ImportStats summarizes one batch run for the reporting layer. The
// engine returns these structured counts and has no rendering
// responsibility of its own.
type ImportStats struct {
	Batch  string `json:"batch"`
	DryRun bool   `json:"dry_run"`

	RecordsScanned  int `json:"records_scanned"`
	Slots           int `json:"slots"`
	NewPeople       int `json:"new_people"`
	ReusedPeople    int `json:"reused_people"`
	EnrichedPeople  int `json:"enriched_people"`
	SkippedNameless int `json:"skipped_nameless"`

	Tables map[string]*TableCounts `json:"tables"`
}

// NewImportStats creates an empty stats record for a batch.
func NewImportStats(batch string, dryRun bool) *ImportStats {
	return &ImportStats{
		Batch:  batch,
		DryRun: dryRun,
		Tables: map[string]*TableCounts{},
	}
}

// Table returns the counts bucket for a table, creating it on first use.
func (s *ImportStats) Table(name string) *TableCounts {
	tc, ok := s.Tables[name]
	if !ok {
		tc = &TableCounts{}
		s.Tables[name] = tc
	}
	return tc
}
