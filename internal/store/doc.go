// Package store provides SQLite-backed records of lowering runs.
//
// Each run of the pipeline over one unit is stored with its unit hash,
// mangling scheme version and outcome. Successful runs also store their
// flat-name table, one row per symbol, so that a flat name seen in
// generated code can be traced back to its declaration:
//
//   - runs: one row per lowered unit, ordered by seq (logical clock)
//   - symbols: flat name, declaration kind, source name and decoded
//     signature; UNIQUE(run_id, flat_name)
//
// The lowering pipeline never reads the store. Every unit is lowered from
// its own declarations only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order by seq ASC, then by a binary-collated key, so results
// are identical across processes.
package store
