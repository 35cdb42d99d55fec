package store

import (
	"fmt"
	"strings"

	"github.com/roach88/localdoc/internal/jsonv"
)

// Reserved body keys.
const (
	KeyID      = "_id"
	KeyACL     = "ACL"
	KeyDeleted = "deleted"
)

// SyncState tags a document as matching the server or pending push.
type SyncState int

const (
	// StateClean means the local copy matches the last known server state.
	StateClean SyncState = 0
	// StateDirty means the document was created, changed or deleted locally
	// and not yet pushed.
	StateDirty SyncState = 1
)

// String returns "clean", "dirty" or the numeric value.
func (s SyncState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// ParseSyncState accepts "clean" or "dirty", case-insensitively.
func ParseSyncState(s string) (SyncState, error) {
	switch strings.ToLower(s) {
	case "clean":
		return StateClean, nil
	case "dirty":
		return StateDirty, nil
	default:
		return 0, fmt.Errorf("unknown sync state %q", s)
	}
}

// Document is one stored JSON object.
type Document struct {
	ID     string
	Bucket string
	Body   *jsonv.Object
	State  SyncState
}

// Deleted reports whether the body carries the tombstone marker
// "deleted": true.
func (d *Document) Deleted() bool {
	if d == nil {
		return false
	}
	v, ok := d.Body.Get(KeyDeleted)
	if !ok {
		return false
	}
	b, ok := v.(jsonv.Bool)
	return ok && bool(b)
}

// ACL returns the body's ACL value, or nil when the body has none.
func (d *Document) ACL() jsonv.Value {
	if d == nil {
		return nil
	}
	v, _ := d.Body.Get(KeyACL)
	return v
}

// Fingerprint returns the content hash of the body.
func (d *Document) Fingerprint() (string, error) {
	return jsonv.Fingerprint(d.Body)
}

// resolveID picks the document id: the ID field, else a string "_id" in
// the body, else "".
func (d *Document) resolveID() string {
	if d.ID != "" {
		return d.ID
	}
	if v, ok := d.Body.Get(KeyID); ok {
		if s, ok := v.(jsonv.String); ok {
			return string(s)
		}
	}
	return ""
}

func encodeBody(body *jsonv.Object) (string, error) {
	data, err := jsonv.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

func decodeBody(raw string) (*jsonv.Object, error) {
	body, err := jsonv.ParseObject([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return body, nil
}
