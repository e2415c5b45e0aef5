package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/contacts-cli/internal/store"
)

// statusTables is the display order for the table counts summary.
var statusTables = []string{
	store.TablePeople,
	store.TableOrgs,
	store.TablePhones,
	store.TableEmails,
	store.TableProfiles,
	store.TableAssets,
	store.TablePersonPhones,
	store.TablePersonEmails,
	store.TablePersonProfs,
	store.TablePersonOrgs,
	store.TablePersonAssets,
	store.TableAssetPhones,
	store.TableAssetOrgs,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print row counts for every table in the contact graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := tableCounts(cmd.Context(), st)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	},
}

func tableCounts(ctx context.Context, st store.Store) (map[string]int, error) {
	counts := make(map[string]int, len(statusTables))
	for _, table := range statusTables {
		rows, err := st.FetchAll(ctx, table, []string{"id"})
		if err != nil {
			return nil, err
		}
		counts[table] = len(rows)
	}
	return counts, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
