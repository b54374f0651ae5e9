package store

import (
	"context"
	"fmt"

	"github.com/grainlify/escrow-engine/internal/codec"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stellar/go/xdr"
)

// Postgres is the durable backing for the Persistent scope, grounded in
// the teacher's internal/db (pgx pool) and in bmachimbira-loyalty's and
// mbd888-alancoin's use of jackc/pgx/v5. Instance-scope entries stay in
// an in-process Memory delegate: they are the "small, hot, per-contract
// singletons" spec.md §4.1 describes, and round-tripping them through a
// database on every guard check would defeat their purpose.
type Postgres struct {
	pool     *pgxpool.Pool
	instance *Memory
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS escrow_kv (
	scope      TEXT NOT NULL,
	namespace  TEXT NOT NULL,
	parts      TEXT NOT NULL,
	seq        BIGSERIAL,
	value      BYTEA NOT NULL,
	PRIMARY KEY (scope, namespace, parts)
);
CREATE INDEX IF NOT EXISTS escrow_kv_ns_idx ON escrow_kv (namespace, seq);
`

// NewPostgres opens a pool against dsn and ensures the KV table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &Postgres{pool: pool, instance: NewMemory()}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func partsKey(k Key) string {
	s := ""
	for i, part := range k.Parts {
		if i > 0 {
			s += "\x1f"
		}
		s += part
	}
	return s
}

func (p *Postgres) Get(ctx context.Context, k Key) (xdr.ScVal, bool, error) {
	if k.Scope == Instance {
		return p.instance.Get(ctx, k)
	}
	row := p.pool.QueryRow(ctx,
		`SELECT value FROM escrow_kv WHERE scope=$1 AND namespace=$2 AND parts=$3`,
		k.Scope.String(), k.Namespace, partsKey(k))
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return xdr.ScVal{}, false, nil
	}
	v, err := codec.Unmarshal(raw)
	if err != nil {
		return xdr.ScVal{}, false, fmt.Errorf("store: decode %s: %w", k, err)
	}
	return v, true, nil
}

func (p *Postgres) Has(ctx context.Context, k Key) (bool, error) {
	_, ok, err := p.Get(ctx, k)
	return ok, err
}

func (p *Postgres) Scan(ctx context.Context, ns string, prefix ...string) ([]xdr.ScVal, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT value, parts FROM escrow_kv WHERE namespace=$1 ORDER BY seq ASC`, ns)
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", ns, err)
	}
	defer rows.Close()

	want := partsKey(Key{Parts: prefix})
	var out []xdr.ScVal
	for rows.Next() {
		var raw []byte
		var parts string
		if err := rows.Scan(&raw, &parts); err != nil {
			return nil, err
		}
		if len(prefix) > 0 && !hasPartsPrefix(parts, want) {
			continue
		}
		v, err := codec.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("store: decode scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func hasPartsPrefix(parts, want string) bool {
	if want == "" {
		return true
	}
	return len(parts) >= len(want) && parts[:len(want)] == want
}

func (p *Postgres) NewTxn() *Txn { return &Txn{} }

// Commit applies instance writes immediately (in-memory) and persistent
// writes inside one pgx transaction, so a mid-batch failure leaves the
// database untouched — the all-or-nothing contract of spec.md §4.1.
func (p *Postgres) Commit(ctx context.Context, txn *Txn) error {
	var instanceTxn Txn
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin txn: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range txn.deletes {
		if d.Scope == Instance {
			instanceTxn.Delete(d)
			continue
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM escrow_kv WHERE scope=$1 AND namespace=$2 AND parts=$3`,
			d.Scope.String(), d.Namespace, partsKey(d)); err != nil {
			return fmt.Errorf("store: delete %s: %w", d, err)
		}
	}
	for _, w := range txn.writes {
		if w.key.Scope == Instance {
			instanceTxn.Put(w.key, w.val)
			continue
		}
		raw, err := codec.Marshal(w.val)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", w.key, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO escrow_kv (scope, namespace, parts, value) VALUES ($1,$2,$3,$4)
			 ON CONFLICT (scope, namespace, parts) DO UPDATE SET value = EXCLUDED.value`,
			w.key.Scope.String(), w.key.Namespace, partsKey(w.key), raw); err != nil {
			return fmt.Errorf("store: put %s: %w", w.key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit txn: %w", err)
	}
	return p.instance.Commit(ctx, &instanceTxn)
}
