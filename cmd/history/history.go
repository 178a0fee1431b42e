package history

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/datastore"
)

// Command creates the history command which prints stored detection
// results to stdout, newest first.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored detection results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHistory(settings, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", viper.GetInt("history.limit"), "Maximum number of results to print, 0 for all")

	return cmd
}

func printHistory(settings *conf.Settings, limit int) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer store.Close()

	var results []datastore.DetectionResult
	var err error
	if limit > 0 {
		results, err = store.GetRecentDetections(limit)
	} else {
		results, err = store.GetAllDetections()
	}
	if err != nil {
		return fmt.Errorf("fetching detection history: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPEST\tCONFIDENCE\tSEVERITY\tIMAGE")
	for i := range results {
		r := &results[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.PestLabel, r.Confidence, r.Severity, r.ImageRef)
	}
	return w.Flush()
}
