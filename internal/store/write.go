package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/flatc/internal/ir"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded lowering run.
type Run struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	Unit            string `json:"unit"`
	UnitHash        string `json:"unit_hash"`
	Scheme          string `json:"scheme"`
	CompilerVersion string `json:"compiler_version"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	Stats           string `json:"stats"` // JSON object
}

// RecordRun inserts a run and its symbols in one transaction. The run's
// ID, Seq, Scheme and CompilerVersion are assigned here; the stored run is
// returned.
//
// A failed run (Status "failed") must not carry symbols.
func (s *Store) RecordRun(ctx context.Context, run Run, symbols []Symbol) (Run, error) {
	if run.Status == "" {
		run.Status = StatusOK
	}
	if run.Status == StatusFailed && len(symbols) > 0 {
		return Run{}, fmt.Errorf("record run: failed run %s has %d symbols", run.Unit, len(symbols))
	}
	if run.Stats == "" {
		run.Stats = "{}"
	}
	run.ID = s.ids.Generate()
	run.Scheme = ir.MangleSchemeVersion
	run.CompilerVersion = ir.CompilerVersion

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, unit, unit_hash, scheme, compiler_version, status, error, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Unit,
		run.UnitHash,
		run.Scheme,
		run.CompilerVersion,
		run.Status,
		run.Error,
		run.Stats,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	if err := insertSymbols(ctx, tx, run.ID, symbols); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}

func insertSymbols(ctx context.Context, tx *sql.Tx, runID string, symbols []Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols
		(run_id, flat_name, kind, decl_name, signature, decl_index, file, line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record symbols: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		_, err := stmt.ExecContext(ctx,
			runID,
			sym.Flat,
			sym.Kind,
			sym.DeclName,
			sym.Signature,
			sym.Index,
			sym.File,
			sym.Line,
		)
		if err != nil {
			return fmt.Errorf("record symbol %s: %w", sym.Flat, err)
		}
	}
	return nil
}
