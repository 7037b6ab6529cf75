// Package leveldb keeps the write journal in an embedded LevelDB database
// for deployments without Postgres.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"gdbank/internal/domain/bank"
)

// Entries live under J:<lowercased account>:<unix nanos, big endian>:<id> so a
// prefix scan returns one account's history in time order.
var prefixJournal = []byte("J:")

// Journal implements bank.Journal on LevelDB.
type Journal struct {
	db *leveldb.DB
}

var _ bank.Journal = (*Journal)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Journal, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return &Journal{db: db}, nil
}

// OpenMemory returns a journal that lives only in memory.
func OpenMemory() (*Journal, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func accountPrefix(account string) []byte {
	p := make([]byte, 0, len(prefixJournal)+len(account)+1)
	p = append(p, prefixJournal...)
	p = append(p, strings.ToLower(account)...)
	return append(p, ':')
}

func entryKey(e bank.JournalEntry) []byte {
	key := accountPrefix(e.Account)
	key = binary.BigEndian.AppendUint64(key, uint64(e.CreatedAt.UnixNano()))
	key = append(key, ':')
	return append(key, e.ID...)
}

func (j *Journal) Record(_ context.Context, entry bank.JournalEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	if err := j.db.Put(entryKey(entry), value, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return nil
}

// ListByAccount returns up to limit entries of account, newest first.
func (j *Journal) ListByAccount(ctx context.Context, account string, limit int) ([]bank.JournalEntry, error) {
	iter := j.db.NewIterator(util.BytesPrefix(accountPrefix(account)), nil)
	defer iter.Release()

	var entries []bank.JournalEntry
	for ok := iter.Last(); ok && (limit <= 0 || len(entries) < limit); ok = iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e bank.JournalEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("decoding journal entry %q: %w", iter.Key(), err)
		}
		entries = append(entries, e)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}
