package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Match is a recorded symbol together with the run that produced it.
type Match struct {
	Symbol
	Unit string `json:"unit"`
	Seq  int64  `json:"seq"`
}

// Lookup returns every recorded symbol with the given flat name, oldest
// run first.
//
// Returns an empty slice (not nil) if the name was never recorded.
func (s *Store) Lookup(ctx context.Context, flat string) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.run_id, s.flat_name, s.kind, s.decl_name, s.signature,
		       s.decl_index, s.file, s.line, r.unit, r.seq
		FROM symbols s
		JOIN runs r ON r.id = s.run_id
		WHERE s.flat_name = ?
		ORDER BY r.seq ASC, s.run_id COLLATE BINARY ASC
	`, flat)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.RunID, &m.Flat, &m.Kind, &m.DeclName, &m.Signature,
			&m.Index, &m.File, &m.Line, &m.Unit, &m.Seq,
		); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return matches, nil
}

// Runs returns all recorded runs ordered by seq.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, unit, unit_hash, scheme, compiler_version, status, error, stats
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given ID.
// Returns sql.ErrNoRows (wrapped) if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, unit, unit_hash, scheme, compiler_version, status, error, stats
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// RunSymbols returns the symbols of one run in declaration order.
func (s *Store) RunSymbols(ctx context.Context, runID string) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, flat_name, kind, decl_name, signature, decl_index, file, line
		FROM symbols
		WHERE run_id = ?
		ORDER BY decl_index ASC, flat_name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []Symbol{}
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(
			&sym.RunID, &sym.Flat, &sym.Kind, &sym.DeclName, &sym.Signature,
			&sym.Index, &sym.File, &sym.Line,
		); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seq, &r.Unit, &r.UnitHash, &r.Scheme,
		&r.CompilerVersion, &r.Status, &r.Error, &r.Stats)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
