package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/storage"
)

// TransferArchive implements storage.TransferArchive using ClickHouse.
// A run is one row in trace_runs plus one row per event in trace_transfers.
type TransferArchive struct {
	conn *Conn
}

// NewTransferArchive creates a new TransferArchive.
func NewTransferArchive(conn *Conn) *TransferArchive {
	return &TransferArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferArchive = (*TransferArchive)(nil)

// InsertRun stores a run. Returns ErrDuplicateKey if the run ID exists.
// Events are written before the header so a reader never sees a header without its events.
func (a *TransferArchive) InsertRun(ctx context.Context, run *domain.TraceRun) error {
	if run == nil || run.ID == "" || run.Origin == "" || run.MaxDepth < 0 {
		return storage.ErrInvalidInput
	}
	start := time.Now()

	// MergeTree does not enforce uniqueness, check explicitly for append-only semantics
	exists, err := a.exists(ctx, run.ID)
	if err != nil {
		observe("insert_run", start, err)
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	if len(run.Events) > 0 {
		batch, err := a.conn.PrepareBatch(ctx, `
			INSERT INTO trace_transfers (
				run_id, seq, transfer_id, from_addr, to_addr,
				asset, amount, block_time, signature
			)
		`)
		if err != nil {
			observe("insert_run", start, err)
			return fmt.Errorf("prepare batch: %w", err)
		}

		for i, e := range run.Events {
			err = batch.Append(
				run.ID, uint32(i), e.ID, e.From, e.To,
				e.Asset, e.Amount, e.Timestamp.UTC(), e.Signature,
			)
			if err != nil {
				_ = batch.Abort()
				observe("insert_run", start, err)
				return fmt.Errorf("append to batch: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			observe("insert_run", start, err)
			return fmt.Errorf("send batch: %w", err)
		}
	}

	err = a.conn.Exec(ctx, `
		INSERT INTO trace_runs (run_id, origin, max_depth, created_at, event_count)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Origin, uint16(run.MaxDepth), run.CreatedAt, uint32(len(run.Events)))
	observe("insert_run", start, err)
	if err != nil {
		return fmt.Errorf("insert trace run: %w", err)
	}
	return nil
}

// GetRun retrieves a run with its events ordered by discovery sequence.
func (a *TransferArchive) GetRun(ctx context.Context, id string) (*domain.TraceRun, error) {
	start := time.Now()

	row := a.conn.QueryRow(ctx, `
		SELECT run_id, origin, max_depth, created_at
		FROM trace_runs
		WHERE run_id = ?
		LIMIT 1
	`, id)

	run, err := scanRun(row)
	if err != nil {
		// QueryRow reports a missing row through Scan
		return nil, storage.ErrNotFound
	}

	rows, err := a.conn.Query(ctx, `
		SELECT transfer_id, from_addr, to_addr, asset, amount, block_time, signature
		FROM trace_transfers
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		observe("get_run", start, err)
		return nil, fmt.Errorf("query trace transfers: %w", err)
	}
	defer rows.Close()

	run.Events = make(domain.TraceResult, 0)
	for rows.Next() {
		var e domain.TransferEvent
		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.Asset, &e.Amount, &e.Timestamp, &e.Signature); err != nil {
			observe("get_run", start, err)
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		run.Events = append(run.Events, e)
	}
	err = rows.Err()
	observe("get_run", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return run, nil
}

// ListRunsByOrigin returns run headers for origin, newest first.
func (a *TransferArchive) ListRunsByOrigin(ctx context.Context, origin string, limit int) ([]*domain.TraceRun, error) {
	start := time.Now()

	query := `
		SELECT run_id, origin, max_depth, created_at
		FROM trace_runs
		WHERE origin = ?
		ORDER BY created_at DESC, run_id ASC
	`
	args := []any{origin}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		observe("list_runs", start, err)
		return nil, fmt.Errorf("query runs by origin: %w", err)
	}
	defer rows.Close()

	var runs []*domain.TraceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			observe("list_runs", start, err)
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	err = rows.Err()
	observe("list_runs", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// exists checks if a run with the given ID exists.
func (a *TransferArchive) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := a.conn.QueryRow(ctx, `SELECT count(*) FROM trace_runs WHERE run_id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.TraceRun, error) {
	var (
		run      domain.TraceRun
		maxDepth uint16
	)
	if err := row.Scan(&run.ID, &run.Origin, &maxDepth, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.MaxDepth = int(maxDepth)
	return &run, nil
}

func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), err)
}
