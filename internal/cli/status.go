package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/metrics"
	"github.com/roach88/localdoc/internal/store"
)

// BucketStatus is one bucket's line in the status report.
type BucketStatus struct {
	store.BucketStats
	LastPullServerTime string        `json:"last_pull_server_time,omitempty"`
	LastSyncedAt       string        `json:"last_synced_at,omitempty"`
	SyncScope          *jsonv.Object `json:"sync_scope,omitempty"`
}

// StatusResult is the JSON payload of the status command.
type StatusResult struct {
	Path      string             `json:"path"`
	HasCached bool               `json:"has_cached_objects"`
	Buckets   []BucketStatus     `json:"buckets"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize buckets, dirty counts and sync metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				result, err := collectStatus(ctx, e)
				if err != nil {
					exitErr, code := storeExit("collect status", err)
					return out.Fail(code, exitErr)
				}
				return out.Success(result, func(w io.Writer) { writeStatus(w, result) })
			})
		},
	}
}

func collectStatus(ctx context.Context, e *env) (StatusResult, error) {
	result := StatusResult{Path: e.cfg.Store.Path, Buckets: []BucketStatus{}}
	if e.cfg.Store.InMemory {
		result.Path = "(memory)"
	}

	stats, err := e.store.Stats(ctx)
	if err != nil {
		return result, err
	}
	result.HasCached, err = e.store.HasAnyCachedObjects(ctx)
	if err != nil {
		return result, err
	}

	for _, bs := range stats {
		md, err := e.store.SyncMetadata(ctx, bs.Bucket)
		if err != nil {
			return result, err
		}
		status := BucketStatus{BucketStats: bs, LastPullServerTime: md.LastPullServerTime}
		if !md.LastSyncedAt.IsZero() {
			status.LastSyncedAt = md.LastSyncedAt.Format(time.RFC3339)
		}
		if md.SyncScope != nil && md.SyncScope.Len() > 0 {
			status.SyncScope = md.SyncScope
		}
		result.Buckets = append(result.Buckets, status)
	}

	result.Metrics, err = summarizeMetrics(e.metrics)
	return result, err
}

// summarizeMetrics folds every counter family to its total and every
// histogram to its sample count.
func summarizeMetrics(m *metrics.Metrics) (map[string]float64, error) {
	families, err := m.Gather()
	if err != nil || len(families) == 0 {
		return nil, err
	}
	totals := make(map[string]float64, len(families))
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				totals[fam.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				totals[fam.GetName()+"_count"] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return totals, nil
}

func writeStatus(w io.Writer, r StatusResult) {
	fmt.Fprintf(w, "store: %s\n", r.Path)
	fmt.Fprintf(w, "cached objects: %t\n", r.HasCached)
	if len(r.Buckets) == 0 {
		fmt.Fprintln(w, "no buckets")
	}
	for _, b := range r.Buckets {
		fmt.Fprintf(w, "%-20s rows=%d dirty=%d", b.Bucket, b.Rows, b.Dirty)
		if b.LastPullServerTime != "" {
			fmt.Fprintf(w, " last_pull=%s", b.LastPullServerTime)
		}
		if b.LastSyncedAt != "" {
			fmt.Fprintf(w, " synced_at=%s", b.LastSyncedAt)
		}
		fmt.Fprintln(w)
	}
	if len(r.Metrics) > 0 {
		fmt.Fprintln(w, "metrics:")
		names := make([]string, 0, len(r.Metrics))
		for name := range r.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s %g\n", name, r.Metrics[name])
		}
	}
}

// NewMarkSyncedCommand creates the mark-synced command.
func NewMarkSyncedCommand(opts *RootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "mark-synced <bucket> <server-time>",
		Short: "Record a completed pull for a bucket",
		Long: `Record that a pull for the bucket reached server-time.

The local completion time is stamped from the clock. --scope replaces the
stored sync scope with the given JSON object.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			bucket, serverTime := args[0], args[1]

			var scopeObj *jsonv.Object
			if scope != "" {
				var err error
				scopeObj, err = readObjectArg(cmd, scope)
				if err != nil {
					return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid --scope", err))
				}
			}

			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				var md *store.SyncMetadata
				err := e.store.InTx(ctx, func(tx *store.Store) error {
					if scopeObj != nil {
						current, err := tx.SyncMetadata(ctx, bucket)
						if err != nil {
							return err
						}
						current.SyncScope = scopeObj
						if err := tx.SaveSyncMetadata(ctx, current); err != nil {
							return err
						}
					}
					if err := tx.MarkSynced(ctx, bucket, serverTime); err != nil {
						return err
					}
					var err error
					md, err = tx.SyncMetadata(ctx, bucket)
					return err
				})
				if err != nil {
					exitErr, code := storeExit("mark synced", err)
					return out.Fail(code, exitErr)
				}

				data := map[string]any{
					"bucket":                bucket,
					"last_pull_server_time": md.LastPullServerTime,
					"last_synced_at":        md.LastSyncedAt.Format(time.RFC3339),
				}
				return out.Success(data, func(w io.Writer) {
					fmt.Fprintf(w, "%s synced to %s\n", bucket, md.LastPullServerTime)
				})
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "sync scope as a JSON object")
	return cmd
}
