package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loupesearch/loupe-go/batches"
)

func init() {
	RootCmd.AddCommand(batchesCmd)
	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesGetCmd)

	batchesListCmd.Flags().Int64("limit", 0, "maximum number of batches to return")
	batchesListCmd.Flags().Int64("from", -1, "first batch uid that should be returned")
	batchesListCmd.Flags().Bool("reverse", false, "return results from oldest to most recent")
	batchesListCmd.Flags().Int64Slice("uids", nil, "select batches containing the tasks with these uids")
	batchesListCmd.Flags().Int64Slice("batch-uids", nil, "filter batches by their own uid")
	batchesListCmd.Flags().StringSlice("index-uids", nil, "select batches containing tasks affecting these indexes")
	batchesListCmd.Flags().StringSlice("statuses", nil, "select batches containing tasks with these statuses")
	batchesListCmd.Flags().StringSlice("types", nil, "select batches containing tasks with these types")
	batchesListCmd.Flags().String("before-enqueued-at", "", "tasks enqueued before this RFC 3339 timestamp")
	batchesListCmd.Flags().String("before-started-at", "", "tasks started before this RFC 3339 timestamp")
	batchesListCmd.Flags().String("before-finished-at", "", "tasks finished before this RFC 3339 timestamp")
	batchesListCmd.Flags().String("after-enqueued-at", "", "tasks enqueued after this RFC 3339 timestamp")
	batchesListCmd.Flags().String("after-started-at", "", "tasks started after this RFC 3339 timestamp")
	batchesListCmd.Flags().String("after-finished-at", "", "tasks finished after this RFC 3339 timestamp")
	batchesListCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")

	batchesGetCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "inspect asynchronous batches",
	Long:  `list the batches reported by the server, or fetch a single batch by uid`,
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "list batches with optional filters and pagination",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		query := batches.NewQuery(c)

		if uids, _ := cmd.Flags().GetInt64Slice("uids"); len(uids) > 0 {
			query.WithUids(uids...)
		}
		if uids, _ := cmd.Flags().GetInt64Slice("batch-uids"); len(uids) > 0 {
			query.WithBatchUids(uids...)
		}
		if uids, _ := cmd.Flags().GetStringSlice("index-uids"); len(uids) > 0 {
			query.WithIndexUids(uids...)
		}
		if statuses, _ := cmd.Flags().GetStringSlice("statuses"); len(statuses) > 0 {
			query.WithStatuses(statuses...)
		}
		if types, _ := cmd.Flags().GetStringSlice("types"); len(types) > 0 {
			query.WithTypes(types...)
		}
		if cmd.Flags().Changed("limit") {
			limit, _ := cmd.Flags().GetInt64("limit")
			query.WithLimit(limit)
		}
		if cmd.Flags().Changed("from") {
			from, _ := cmd.Flags().GetInt64("from")
			query.WithFrom(from)
		}
		if reverse, _ := cmd.Flags().GetBool("reverse"); reverse {
			query.WithReverse(true)
		}

		bounds := []struct {
			flag string
			set  func(time.Time) *batches.Query
		}{
			{"before-enqueued-at", query.WithBeforeEnqueuedAt},
			{"before-started-at", query.WithBeforeStartedAt},
			{"before-finished-at", query.WithBeforeFinishedAt},
			{"after-enqueued-at", query.WithAfterEnqueuedAt},
			{"after-started-at", query.WithAfterStartedAt},
			{"after-finished-at", query.WithAfterFinishedAt},
		}
		for _, bound := range bounds {
			raw, _ := cmd.Flags().GetString(bound.flag)
			if raw == "" {
				continue
			}
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("--%s: %w", bound.flag, err)
			}
			bound.set(ts)
		}

		page, err := query.Execute(context.Background())
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		return renderPage(cmd, output, page)
	},
}

var batchesGetCmd = &cobra.Command{
	Use:   "get <uid>",
	Short: "fetch a single batch by uid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid batch uid %q: %w", args[0], err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		batch, err := batches.Get(context.Background(), c, uid)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		return renderBatch(cmd, output, batch)
	},
}

func renderPage(cmd *cobra.Command, output string, page *batches.ResultsPage) error {
	switch output {
	case "json":
		return renderJSON(cmd, page)
	case "yaml":
		return renderYAML(cmd, page)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UID\tTASKS\tSUCCEEDED\tFAILED\tSTRATEGY\tSTARTED\tDURATION")
		for _, b := range page.Results {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
				b.Uid,
				humanize.Comma(int64(b.Stats.TotalNbTasks)),
				b.Stats.Status[batches.StatusSucceeded],
				b.Stats.Status[batches.StatusFailed],
				formatStrategy(b.BatchStrategy),
				formatTime(b.StartedAt),
				formatDuration(b.Duration),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s batches total", humanize.Comma(int64(page.Total)))
		if page.HasNext() {
			fmt.Fprintf(cmd.OutOrStdout(), ", next page from uid %d", *page.Next)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected table, json or yaml)", output)
	}
}

func renderBatch(cmd *cobra.Command, output string, batch *batches.Batch) error {
	switch output {
	case "json":
		return renderJSON(cmd, batch)
	case "yaml":
		return renderYAML(cmd, batch)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "uid:\t%d\n", batch.Uid)
		fmt.Fprintf(w, "strategy:\t%s\n", formatStrategy(batch.BatchStrategy))
		fmt.Fprintf(w, "total tasks:\t%d\n", batch.Stats.TotalNbTasks)
		for status, count := range batch.Stats.Status {
			fmt.Fprintf(w, "status %s:\t%d\n", status, count)
		}
		for taskType, count := range batch.Stats.Types {
			fmt.Fprintf(w, "type %s:\t%d\n", taskType, count)
		}
		for index, count := range batch.Stats.IndexedUids {
			fmt.Fprintf(w, "index %s:\t%d tasks\n", index, count)
		}
		fmt.Fprintf(w, "started:\t%s\n", formatTime(batch.StartedAt))
		fmt.Fprintf(w, "finished:\t%s\n", formatTime(batch.FinishedAt))
		fmt.Fprintf(w, "duration:\t%s\n", formatDuration(batch.Duration))
		if batch.Progress != nil {
			fmt.Fprintf(w, "progress:\t%.1f%%\n", batch.Progress.Percentage)
			for _, step := range batch.Progress.Steps {
				fmt.Fprintf(w, "  %s:\t%d/%d\n", step.CurrentStep, step.Finished, step.Total)
			}
		}
		if congestion := batch.Stats.WriteChannelCongestion; congestion != nil {
			fmt.Fprintf(w, "write congestion:\t%d/%d blocking (%.1f%%)\n",
				congestion.BlockingAttempts, congestion.Attempts, congestion.BlockingRatio*100)
		}
		if sizes := batch.Stats.InternalDatabaseSizes; sizes != nil {
			fmt.Fprintf(w, "documents db:\t%s\n", sizes.Documents)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q (expected table, json or yaml)", output)
	}
}

func renderJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func renderYAML(cmd *cobra.Command, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func formatStrategy(s batches.Strategy) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func formatDuration(d *string) string {
	if d == nil {
		return "-"
	}
	return *d
}
