// Package queryir parses MongoDB-style query documents into a closed
// operator tree.
//
// A query document is a conjunction of clauses. A key beginning with "$"
// is a logical operator ($and, $or, $nor, $not); any other key is a
// dot-separated field path whose operand is either a literal to compare
// against or an object of comparison operators:
//
//	{"status": "open", "total": {"$gte": 10, "$lt": 100}, "$or": [{"tags": "a"}, {"tags": "b"}]}
//
// SEALED INTERFACES:
//
// Expr, Condition and Op are sealed with marker methods, so evaluators can
// switch exhaustively over the node types:
//
//	switch e := expr.(type) {
//	case Conjunction:
//	case And:
//	case Or:
//	case Nor:
//	case Not:
//	case Field:
//	case Unknown:
//	}
//
// An operand of the wrong shape ($in with a scalar, $and with an object)
// is rejected by Parse with ErrMalformedQuery. An operator name the tree
// does not know parses to Unknown or UnknownOp. Those nodes never match,
// and the rest of the query is unaffected: {"$or":[{"a":1},{"$where":"x"}]}
// still matches documents with a == 1.
//
// Unsupported on purpose: $elemMatch, $type, $mod, $text, $where, geo
// operators and /slash/ regex literals. They parse as unknown operators.
package queryir
