package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/notamwatch/api"
	"github.com/hazyhaar/notamwatch/notam"
	"github.com/hazyhaar/notamwatch/store"
)

func newStatsCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			st := store.StatsOf(c)
			sum := notam.Summarize(c.Notams, top)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "total\t%d\n", st.TotalCount)
			fmt.Fprintf(w, "new (last run)\t%d\n", st.NewCount)
			fmt.Fprintf(w, "last updated\t%s\n", formatTime(&st.LastUpdated))
			fmt.Fprintf(w, "oldest\t%s\n", formatTime(st.OldestCreatedAt))
			fmt.Fprintf(w, "newest\t%s\n", formatTime(st.NewestCreatedAt))
			for _, sc := range []notam.Scope{notam.ScopeAerodrome, notam.ScopeEnRoute, notam.ScopeRadar, notam.ScopeNavigation} {
				fmt.Fprintf(w, "type %s (%s)\t%d\n", sc, sc.Description(), sum.ByScope[sc])
			}
			for _, lc := range sum.TopLocations {
				fmt.Fprintf(w, "location %s\t%d\n", lc.Location, lc.Count)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of locations listed")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var req api.ListRequest
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored NOTAMs",
		Example: `  notamwatch list --date today --icao LLBG,LLHA
  notamwatch list --type A --region north --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := req.FilterOptions(time.Now())
			if err != nil {
				return err
			}
			c, err := a.openStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			recs := notam.Filter(c.Notams, opts)
			if req.Limit > 0 && len(recs) > req.Limit {
				recs = recs[:req.Limit]
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOCATION\tFROM\tTO\tTEXT")
			for i := range recs {
				r := &recs[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.LocationCode, formatTime(r.ValidFrom), formatTime(r.ValidTo), truncate(r.BodyText, 60))
			}
			return w.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Date, "date", "", "day the notices are in force: YYYY-MM-DD, today or tomorrow")
	f.StringSliceVar(&req.ICAO, "icao", nil, "location codes")
	f.StringVar(&req.Type, "type", "", "scope letter: A, C, R or N")
	f.StringVar(&req.Region, "region", "", "all, north or south")
	f.IntVar(&req.Limit, "limit", 0, "max notices printed")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var date, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the notices in force on one day to a dated JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := api.ParseDay(date, time.Now())
			if err != nil {
				return err
			}
			ds := day.Format(time.DateOnly)
			if out == "" {
				out = filepath.Join(filepath.Dir(a.cfg.Store.Path), "notams-"+ds+".json")
			}

			st := a.openStore()
			c, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			recs := notam.Filter(c.Notams, notam.FilterOptions{Day: &day})
			if err := st.ExportDaily(cmd.Context(), recs, ds, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notices written to %s\n", len(recs), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "YYYY-MM-DD, today or tomorrow")
	cmd.Flags().StringVar(&out, "out", "", "output file (default next to the store)")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	var failures bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent fetch runs from the run ledger",
		Long: `Print the most recent runs recorded in the run ledger. With --failures,
print instead how many runs failed on each notice, most frequent first, which
points at entries the extractor keeps tripping over.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := a.openLedger()
			if err != nil {
				return err
			}
			if ledger == nil {
				return fmt.Errorf("notamwatch: run ledger disabled (runlog.path is empty)")
			}
			defer ledger.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if failures {
				counts, err := ledger.FailureCounts(cmd.Context())
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(counts))
				for id := range counts {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool {
					if counts[ids[i]] != counts[ids[j]] {
						return counts[ids[i]] > counts[ids[j]]
					}
					return ids[i] < ids[j]
				})
				fmt.Fprintln(w, "NOTICE\tFAILED RUNS")
				for _, id := range ids {
					fmt.Fprintf(w, "%s\t%d\n", id, counts[id])
				}
				return w.Flush()
			}

			runs, err := ledger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tSTARTED\tMODE\tSTATUS\tNEW\tTOTAL\tFAILED")
			for i := range runs {
				r := &runs[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, formatTime(&r.StartedAt), r.Mode, r.Status, r.NewCount, r.TotalCount, len(r.Failed))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs printed")
	cmd.Flags().BoolVar(&failures, "failures", false, "print failure counts per notice")
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
