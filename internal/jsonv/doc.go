// Package jsonv provides the JSON value model shared by the document store,
// the query evaluator and the CLI.
//
// Values are a sealed set of types: Null, Bool, Number, String, Array and
// *Object. Objects keep their keys in insertion order so a document body
// round-trips through the store with its field order intact. Numbers keep
// their original literal text and are coerced to float64 only when compared.
//
// Two serializations exist:
//
//   - Marshal: insertion-ordered, no HTML escaping. Used for the stored "json"
//     column and for CLI output.
//   - MarshalCanonical: keys sorted by UTF-16 code units, strings NFC
//     normalized. Used only for Fingerprint, which identifies document content
//     independently of key order.
package jsonv
