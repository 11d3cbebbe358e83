package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/common"
)

// Load reads the stored sale. The bool is false when no sale has been
// initialised yet.
func (s *Store) Load(ctx context.Context) (*sale.State, bool, error) {
	var (
		owner, baseURI, cost, held string
		st                         sale.State
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, base_uri, cost, max_supply, total_minted, held, last_seq
		FROM sale WHERE id = 1
	`).Scan(&owner, &baseURI, &cost, &st.Config.MaxSupply, &st.TotalMinted, &held, &st.LastSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load sale: %w", err)
	}

	st.Owner = common.HexToAddress(owner)
	st.Config.BaseURI = baseURI
	if st.Config.Cost, err = parseAmount("cost", cost); err != nil {
		return nil, false, err
	}
	if st.Held, err = parseAmount("held", held); err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT token_id, owner FROM tokens ORDER BY token_id ASC`)
	if err != nil {
		return nil, false, fmt.Errorf("load tokens: %w", err)
	}
	defer rows.Close()

	st.Owners = make(map[uint64]common.Address)
	for rows.Next() {
		var (
			id     uint64
			holder string
		)
		if err := rows.Scan(&id, &holder); err != nil {
			return nil, false, fmt.Errorf("load tokens: %w", err)
		}
		st.Owners[id] = common.HexToAddress(holder)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("load tokens: %w", err)
	}
	return &st, true, nil
}

// Events returns up to limit records with seq > after, oldest first.
// A limit of 0 means no limit.
func (s *Store) Events(ctx context.Context, after uint64, limit int) ([]sale.Record, error) {
	query := `SELECT seq, call_id, name, payload, created_at FROM events WHERE seq > ? ORDER BY seq ASC`
	args := []any{after}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []sale.Record
	for rows.Next() {
		var (
			r                        sale.Record
			name, payload, createdAt string
		)
		if err := rows.Scan(&r.Seq, &r.CallID, &name, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if r.Event, err = sale.DecodeEvent(name, []byte(payload)); err != nil {
			return nil, fmt.Errorf("event %d: %w", r.Seq, err)
		}
		if r.At, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("event %d: bad timestamp: %w", r.Seq, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sale restores the stored sale with the store as its committer. The bool
// is false when no sale has been initialised.
func (s *Store) Sale(ctx context.Context, opts ...sale.Option) (*sale.TokenSale, bool, error) {
	st, ok, err := s.Load(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	ts, err := sale.Restore(*st, append(opts, sale.WithCommitter(s))...)
	if err != nil {
		return nil, false, err
	}
	return ts, true, nil
}

func parseAmount(field, v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("load sale: bad %s %q", field, v)
	}
	return n, nil
}
