package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_snapshots (
	name       TEXT PRIMARY KEY,
	documents  INTEGER NOT NULL,
	terms      INTEGER NOT NULL,
	postings   BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS index_postings (
	snapshot TEXT NOT NULL REFERENCES index_snapshots(name) ON DELETE CASCADE,
	term     TEXT NOT NULL,
	doc_id   TEXT NOT NULL,
	tf       INTEGER NOT NULL CHECK (tf > 0),
	PRIMARY KEY (snapshot, term, doc_id)
);`

// PostgresStore keeps one row per posting, bulk-loaded with COPY.
type PostgresStore struct {
	client *postgres.Client
	name   string
}

func NewPostgresStore(client *postgres.Client, name string) *PostgresStore {
	return &PostgresStore{client: client, name: name}
}

// EnsureSchema creates the snapshot tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}
	return nil
}

// Save replaces the snapshot in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, p *index.Postings) error {
	entries := p.Entries()
	if len(entries) == 0 {
		return fmt.Errorf("cannot save snapshot %q: %w", s.name, apperrors.ErrEmptyIndex)
	}
	var total int64
	for _, e := range entries {
		total += int64(len(e.Postings))
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM index_snapshots WHERE name = $1`, s.name); err != nil {
			return fmt.Errorf("removing previous snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_snapshots (name, documents, terms, postings) VALUES ($1, $2, $3, $4)`,
			s.name, p.DocumentCount(), p.TermCount(), total,
		); err != nil {
			return fmt.Errorf("recording snapshot: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("index_postings", "snapshot", "term", "doc_id", "tf"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, e := range entries {
			for _, posting := range e.Postings {
				if _, err := stmt.ExecContext(ctx, s.name, e.Term, posting.DocID, posting.Frequency); err != nil {
					stmt.Close()
					return fmt.Errorf("copying posting (%q, %q): %w", e.Term, posting.DocID, err)
				}
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
}

// Load reads the snapshot inside one read-only transaction, so a concurrent
// Save is either fully visible or not at all.
func (s *PostgresStore) Load(ctx context.Context) (*index.Postings, error) {
	var p *index.Postings
	err := s.client.InReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.load(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) load(ctx context.Context, tx *sql.Tx) (*index.Postings, error) {
	var documents, terms int
	var total int64
	err := tx.QueryRowContext(ctx,
		`SELECT documents, terms, postings FROM index_snapshots WHERE name = $1`, s.name,
	).Scan(&documents, &terms, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %q: %w", s.name, apperrors.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT term, doc_id, tf FROM index_postings WHERE snapshot = $1 ORDER BY term, doc_id`, s.name)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	p := index.NewPostings()
	var loaded int64
	for rows.Next() {
		var term, doc string
		var tf int
		if err := rows.Scan(&term, &doc, &tf); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		if err := p.Put(term, doc, tf); err != nil {
			return nil, err
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	if loaded != total || p.DocumentCount() != documents || p.TermCount() != terms {
		return nil, fmt.Errorf("snapshot %q: loaded %d postings/%d docs/%d terms, recorded %d/%d/%d: %w",
			s.name, loaded, p.DocumentCount(), p.TermCount(), total, documents, terms, apperrors.ErrCorruptSnapshot)
	}
	return p, nil
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) Location() string { return "postgres:index_snapshots/" + s.name }
