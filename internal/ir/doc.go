// Package ir provides the typed declaration model lowered by flatc.
//
// All other internal packages import ir; ir imports nothing internal.
// This keeps the type model the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Types form a closed set (Builtin, Named, Pointer, Reference, Array,
//     Erased, FuncPtr) matched exhaustively
//   - Equality is structural over Canonical forms
//   - Lowering stages return new declaration lists and never mutate
//     the input of an earlier stage
//   - Unit hashes use RFC 8785 canonical JSON, never encoding/json
package ir
