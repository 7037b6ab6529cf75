package postgres

import (
	"context"
	"fmt"

	"gdbank/internal/domain/bank"
)

const journalSchema = `
	CREATE TABLE IF NOT EXISTS bank_journal (
		id         UUID PRIMARY KEY,
		account    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		argument   TEXT NOT NULL DEFAULT '',
		tx_hash    TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL,
		error      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS bank_journal_account_idx
		ON bank_journal (LOWER(account), created_at DESC);

	CREATE OR REPLACE FUNCTION bank_journal_notify() RETURNS trigger AS $$
	BEGIN
		IF NEW.status <> 'submitted' THEN
			PERFORM pg_notify('bank_journal', json_build_object(
				'account', NEW.account,
				'kind', NEW.kind,
				'status', NEW.status,
				'tx_hash', NEW.tx_hash
			)::text);
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS bank_journal_notify ON bank_journal;
	CREATE TRIGGER bank_journal_notify
		AFTER INSERT ON bank_journal
		FOR EACH ROW EXECUTE FUNCTION bank_journal_notify();
`

// JournalRepository stores write journal entries in Postgres.
type JournalRepository struct {
	db *DB
}

var _ bank.Journal = (*JournalRepository)(nil)

func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// EnsureSchema creates the journal table when missing.
func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

func (r *JournalRepository) Record(ctx context.Context, entry bank.JournalEntry) error {
	query := `
		INSERT INTO bank_journal (id, account, kind, argument, tx_hash, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID, entry.Account, string(entry.Kind), entry.Argument,
		entry.TxHash, string(entry.Status), entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// ListByAccount returns the newest entries of account first. Addresses
// match case-insensitively. A zero limit returns every entry.
func (r *JournalRepository) ListByAccount(ctx context.Context, account string, limit int) ([]bank.JournalEntry, error) {
	query := `
		SELECT id, account, kind, argument, tx_hash, status, error, created_at
		FROM bank_journal
		WHERE LOWER(account) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0)
	`

	rows, err := r.db.QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var entries []bank.JournalEntry
	for rows.Next() {
		var (
			e            bank.JournalEntry
			kind, status string
		)
		if err := rows.Scan(
			&e.ID, &e.Account, &kind, &e.Argument,
			&e.TxHash, &status, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Kind = bank.WriteKind(kind)
		e.Status = bank.JournalStatus(status)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
