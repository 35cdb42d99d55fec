package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/localdoc/internal/acl"
	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/pipeline"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Order          []string
	Skip           int
	Limit          int
	IncludeDeleted bool
	Principal      string
	Roles          []string
	Rule           string
	Count          bool
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Bucket    string         `json:"bucket"`
	Count     int            `json:"count"`
	Documents []DocumentView `json:"documents,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <bucket> [filter]",
		Short: "Run a filter query against a bucket",
		Long: `Run a document filter against a bucket and print the matches.

The filter is a JSON object using field equality and $-operators
($eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $all, $exists, $regex,
$and, $or, $nor, $not). An omitted filter matches
every document. Tombstoned documents are skipped unless
--include-deleted is set.

With --principal, documents are also filtered by the ACL rule from the
config file (or --acl-rule).

Examples:
  localdoc query notes
  localdoc query notes '{"tags":{"$in":["work"]}}' --order -priority,title
  localdoc query notes '{}' --principal alice --role editors --count`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "sort keys, prefix with - for descending")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of matches to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "maximum number of matches, -1 for no limit")
	cmd.Flags().BoolVar(&opts.IncludeDeleted, "include-deleted", false, "include tombstoned documents")
	cmd.Flags().StringVar(&opts.Principal, "principal", "", "read on behalf of this principal id")
	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "principal roles")
	cmd.Flags().StringVar(&opts.Rule, "acl-rule", "", "CEL read rule, overrides the config")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print only the number of matches")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, args []string) error {
	out := newFormatter(opts.RootOptions, cmd)
	bucket := args[0]

	var filter *jsonv.Object
	if len(args) == 2 {
		var err error
		filter, err = readObjectArg(cmd, args[1])
		if err != nil {
			return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid filter", err))
		}
	}

	q := pipeline.NewQuery().
		WithExpression(filter).
		WithOrder(opts.Order...).
		WithSkip(opts.Skip).
		WithLimit(opts.Limit).
		WithIncludeDeleted(opts.IncludeDeleted)

	return withEnv(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		var runOpts []pipeline.RunOption
		if opts.Principal != "" || len(opts.Roles) > 0 {
			rule := opts.Rule
			if rule == "" {
				rule = e.cfg.ACL.Rule
			}
			checker, err := e.acl.Checker(rule)
			if err != nil {
				return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "compile acl rule", err))
			}
			runOpts = append(runOpts, pipeline.WithACL(checker,
				acl.Principal{ID: opts.Principal, Roles: opts.Roles}))
		}

		if opts.Count {
			n, err := e.runner.Count(ctx, bucket, q, runOpts...)
			if err != nil {
				exitErr, code := storeExit("count documents", err)
				return out.Fail(code, exitErr)
			}
			return out.Success(QueryResult{Bucket: bucket, Count: n}, func(w io.Writer) {
				fmt.Fprintln(w, n)
			})
		}

		docs, err := e.runner.Run(ctx, bucket, q, runOpts...)
		if err != nil {
			exitErr, code := storeExit("run query", err)
			return out.Fail(code, exitErr)
		}
		result := QueryResult{Bucket: bucket, Count: len(docs), Documents: make([]DocumentView, len(docs))}
		for i := range docs {
			result.Documents[i] = viewOf(&docs[i])
		}
		return out.Success(result, func(w io.Writer) {
			for _, v := range result.Documents {
				writeDocument(w, v)
			}
			fmt.Fprintf(w, "%d document(s)\n", result.Count)
		})
	})
}
