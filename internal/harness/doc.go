// Package harness runs query scenarios against a scratch store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tombstones_hidden
//	description: "Deleted documents stay out of default results"
//	bucket: items
//	acl_rule: ""            # optional CEL read rule, empty = built-in
//	documents:
//	  - {_id: "1", v: 5}
//	  - {_id: "3", v: 5, deleted: true}
//	dirty: ["3"]            # ids inserted with the dirty sync state
//	queries:
//	  - name: v is five
//	    filter: {v: 5}
//	    order: ["-v", "_id"]
//	    skip: 0
//	    limit: 10           # omitted = unbounded
//	    include_deleted: false
//	    principal: {id: alice, roles: [admin]}
//	    expect_ids: ["1"]
//	    expect_count: 1
//	assertions:
//	  - type: dirty_ids
//	    expect_ids: ["3"]
//	  - type: stats
//	    rows: 2
//	    dirty: 1
//	  - type: has_cached
//	    expect: true
//
// Mapping key order in documents and filters is preserved, so bodies are
// stored exactly as written.
//
// # Deterministic Testing
//
// Every run opens a fresh in-memory database with a fixed clock and
// sequential ids (testutil.SequenceIDs), so documents without an _id get
// doc-0001, doc-0002, ... and golden snapshots are byte-identical across
// runs.
package harness
