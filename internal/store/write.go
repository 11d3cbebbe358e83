package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"go.uber.org/zap"
)

// Tx is one sale commit. It satisfies sale.Tx.
type Tx struct {
	tx     *sql.Tx
	logger *zap.Logger
	seq    uint64
	n      int
}

// Begin opens a write transaction. Implements sale.Committer.
func (s *Store) Begin(ctx context.Context) (sale.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx, logger: s.logger}, nil
}

// Write stores the post-call state and the records it produced. The sale
// row must already exist.
func (t *Tx) Write(ctx context.Context, st sale.State, records []sale.Record) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE sale
		SET owner = ?, base_uri = ?, cost = ?, total_minted = ?, held = ?, last_seq = ?
		WHERE id = 1
	`,
		st.Owner.Hex(),
		st.Config.BaseURI,
		st.Config.Cost.String(),
		st.TotalMinted,
		st.Held.String(),
		st.LastSeq,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("update sale: no sale initialised")
	}

	for _, r := range records {
		if tr, ok := r.Event.(sale.TransferEvent); ok {
			if err := upsertToken(ctx, t.tx, tr.TokenID, tr.To.Hex()); err != nil {
				return err
			}
		}
	}
	if err := insertRecords(ctx, t.tx, records); err != nil {
		return err
	}
	t.seq, t.n = st.LastSeq, len(records)
	return nil
}

// Commit makes the write durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.logger.Debug("sale state committed", zap.Uint64("last_seq", t.seq), zap.Int("records", t.n))
	return nil
}

// Rollback discards the write.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Init stores a freshly deployed sale together with its construction
// records. It fails with ErrSaleExists if a sale is already stored.
func (s *Store) Init(ctx context.Context, st sale.State, records []sale.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sale`).Scan(&exists); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if exists > 0 {
		return ErrSaleExists
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sale (id, owner, base_uri, cost, max_supply, total_minted, held, last_seq)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`,
		st.Owner.Hex(),
		st.Config.BaseURI,
		st.Config.Cost.String(),
		st.Config.MaxSupply,
		st.TotalMinted,
		st.Held.String(),
		st.LastSeq,
	)
	if err != nil {
		return fmt.Errorf("init: insert sale: %w", err)
	}
	for id, owner := range st.Owners {
		if err := upsertToken(ctx, tx, id, owner.Hex()); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	if err := insertRecords(ctx, tx, records); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init: commit: %w", err)
	}
	s.logger.Info("sale initialised", zap.String("owner", st.Owner.Hex()), zap.Uint64("max_supply", st.Config.MaxSupply))
	return nil
}

func upsertToken(ctx context.Context, tx *sql.Tx, id uint64, owner string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tokens (token_id, owner) VALUES (?, ?)
		ON CONFLICT(token_id) DO UPDATE SET owner = excluded.owner
	`, id, owner)
	if err != nil {
		return fmt.Errorf("write token %d: %w", id, err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []sale.Record) error {
	for _, r := range records {
		payload, err := json.Marshal(r.Event)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", r.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (seq, call_id, name, payload, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, r.Seq, r.CallID, r.Event.Name(), string(payload), r.At.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("write event %d: %w", r.Seq, err)
		}
	}
	return nil
}
