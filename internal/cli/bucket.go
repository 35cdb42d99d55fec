package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewBucketCommand creates the bucket command group.
func NewBucketCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage bucket tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <bucket>",
		Short: "Create a bucket table if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				if err := e.store.CreateBucketTable(ctx, args[0]); err != nil {
					exitErr, code := storeExit("create bucket", err)
					return out.Fail(code, exitErr)
				}
				return out.Success(map[string]string{"bucket": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "bucket %s ready\n", args[0])
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop <bucket>",
		Short: "Drop a bucket table and every document in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				if err := e.store.DropBucketTable(ctx, args[0]); err != nil {
					exitErr, code := storeExit("drop bucket", err)
					return out.Fail(code, exitErr)
				}
				return out.Success(map[string]string{"bucket": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "bucket %s dropped\n", args[0])
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List buckets that have a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				buckets, err := e.store.ListBucketTables(ctx)
				if err != nil {
					exitErr, code := storeExit("list buckets", err)
					return out.Fail(code, exitErr)
				}
				if buckets == nil {
					buckets = []string{}
				}
				return out.Success(buckets, func(w io.Writer) {
					for _, b := range buckets {
						fmt.Fprintln(w, b)
					}
				})
			})
		},
	})

	return cmd
}
