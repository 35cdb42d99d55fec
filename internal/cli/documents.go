package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/store"
)

// DocumentView is the printable form of a stored document.
type DocumentView struct {
	Bucket      string        `json:"bucket"`
	ID          string        `json:"id"`
	State       string        `json:"state"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Body        *jsonv.Object `json:"body"`
}

func viewOf(doc *store.Document) DocumentView {
	fp, _ := doc.Fingerprint()
	return DocumentView{
		Bucket:      doc.Bucket,
		ID:          doc.ID,
		State:       doc.State.String(),
		Fingerprint: fp,
		Body:        doc.Body,
	}
}

func writeDocument(w io.Writer, v DocumentView) {
	body, err := jsonv.Marshal(v.Body)
	if err != nil {
		body = []byte("<unprintable>")
	}
	fmt.Fprintf(w, "%s/%s [%s]\n", v.Bucket, v.ID, v.State)
	fmt.Fprintf(w, "  fingerprint: %s\n", v.Fingerprint)
	fmt.Fprintf(w, "  %s\n", body)
}

// readObjectArg parses a JSON object from arg, or from stdin when arg is "-".
func readObjectArg(cmd *cobra.Command, arg string) (*jsonv.Object, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	return jsonv.ParseObject(data)
}

// NewPutCommand creates the put command.
func NewPutCommand(opts *RootOptions) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "put <bucket> <json|->",
		Short: "Insert a document",
		Long: `Insert a JSON object into a bucket, creating the bucket table if needed.

The document id is taken from the "_id" key when it is a string;
otherwise a new object id is generated and written into the body.

Examples:
  localdoc put notes '{"title":"groceries"}'
  echo '{"_id":"a1","done":false}' | localdoc put todos - --state clean`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			st, err := store.ParseSyncState(state)
			if err != nil {
				return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid --state", err))
			}
			body, err := readObjectArg(cmd, args[1])
			if err != nil {
				return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid document", err))
			}

			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				doc := &store.Document{Bucket: args[0], Body: body}
				if err := e.store.Insert(ctx, doc, st); err != nil {
					exitErr, code := storeExit("insert document", err)
					return out.Fail(code, exitErr)
				}
				return out.Success(viewOf(doc), func(w io.Writer) {
					fmt.Fprintf(w, "inserted %s/%s [%s]\n", doc.Bucket, doc.ID, doc.State)
				})
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "dirty", "sync state of the new document (dirty|clean)")
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <bucket> <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				doc, err := e.store.Get(ctx, args[0], args[1])
				if err != nil {
					exitErr, code := storeExit("get document", err)
					return out.Fail(code, exitErr)
				}
				if doc == nil {
					return out.Fail(CodeNotFound, NewExitError(ExitFailure,
						fmt.Sprintf("document %s/%s not found", args[0], args[1])))
				}
				view := viewOf(doc)
				return out.Success(view, func(w io.Writer) { writeDocument(w, view) })
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "update <bucket> <id> <json|->",
		Short: "Replace a document body",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			st, err := store.ParseSyncState(state)
			if err != nil {
				return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid --state", err))
			}
			body, err := readObjectArg(cmd, args[2])
			if err != nil {
				return out.Fail(CodeInvalid, WrapExitError(ExitCommandError, "invalid document", err))
			}

			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				doc := &store.Document{ID: args[1], Bucket: args[0], Body: body}
				n, err := e.store.Update(ctx, doc, st)
				if err != nil {
					exitErr, code := storeExit("update document", err)
					return out.Fail(code, exitErr)
				}
				if n == 0 {
					return out.Fail(CodeNotFound, NewExitError(ExitFailure,
						fmt.Sprintf("document %s/%s not found", args[0], args[1])))
				}
				return out.Success(viewOf(doc), func(w io.Writer) {
					fmt.Fprintf(w, "updated %s/%s [%s]\n", doc.Bucket, doc.ID, doc.State)
				})
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "dirty", "sync state after the update (dirty|clean)")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	var tombstone bool

	cmd := &cobra.Command{
		Use:   "delete <bucket> <id>",
		Short: "Remove a document, or mark it deleted",
		Long: `Remove a document row.

With --tombstone the row is kept, its body gets "deleted": true and it is
marked dirty so the deletion can be pushed. Queries skip tombstones.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				bucket, id := args[0], args[1]
				var (
					n   int64
					err error
				)
				if tombstone {
					n, err = markDeleted(ctx, e.store, bucket, id)
				} else {
					n, err = e.store.Delete(ctx, &store.Document{ID: id, Bucket: bucket})
				}
				if err != nil {
					exitErr, code := storeExit("delete document", err)
					return out.Fail(code, exitErr)
				}
				if n == 0 {
					return out.Fail(CodeNotFound, NewExitError(ExitFailure,
						fmt.Sprintf("document %s/%s not found", bucket, id)))
				}
				data := map[string]any{"bucket": bucket, "id": id, "tombstone": tombstone}
				return out.Success(data, func(w io.Writer) {
					if tombstone {
						fmt.Fprintf(w, "tombstoned %s/%s\n", bucket, id)
						return
					}
					fmt.Fprintf(w, "deleted %s/%s\n", bucket, id)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&tombstone, "tombstone", false, "keep the row and set deleted: true")
	return cmd
}

func markDeleted(ctx context.Context, st *store.Store, bucket, id string) (int64, error) {
	var n int64
	err := st.InTx(ctx, func(tx *store.Store) error {
		doc, err := tx.Get(ctx, bucket, id)
		if err != nil || doc == nil {
			return err
		}
		doc.Body.Set(store.KeyDeleted, jsonv.Bool(true))
		n, err = tx.Update(ctx, doc, store.StateDirty)
		return err
	})
	return n, err
}

// NewDirtyCommand creates the dirty command.
func NewDirtyCommand(opts *RootOptions) *cobra.Command {
	var withDocs bool

	cmd := &cobra.Command{
		Use:   "dirty <bucket>",
		Short: "List documents pending push",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts, cmd)
			return withEnv(opts, cmd, func(ctx context.Context, e *env) error {
				if !withDocs {
					ids, err := e.store.DirtyIDs(ctx, args[0])
					if err != nil {
						exitErr, code := storeExit("list dirty ids", err)
						return out.Fail(code, exitErr)
					}
					if ids == nil {
						ids = []string{}
					}
					return out.Success(map[string]any{"bucket": args[0], "ids": ids}, func(w io.Writer) {
						for _, id := range ids {
							fmt.Fprintln(w, id)
						}
					})
				}

				docs, err := e.store.DirtyDocuments(ctx, args[0])
				if err != nil {
					exitErr, code := storeExit("list dirty documents", err)
					return out.Fail(code, exitErr)
				}
				views := make([]DocumentView, len(docs))
				for i := range docs {
					views[i] = viewOf(&docs[i])
				}
				return out.Success(views, func(w io.Writer) {
					for _, v := range views {
						writeDocument(w, v)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&withDocs, "docs", false, "print full documents instead of ids")
	return cmd
}
