package bank

import (
	"context"
	"math/big"
	"time"
)

// Provider is the injected wallet capability. It lists the accounts the
// user exposes and binds the bank contract to one of them for signing.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)

	// Bank returns the contract bound to account. An empty account yields a
	// read-only binding.
	Bank(account string) (Contract, error)
}

// Contract is the deployed bank program.
type Contract interface {
	BankName(ctx context.Context) (Bytes32, error)
	BankOwner(ctx context.Context) (string, error)

	// CustomerBalance returns the caller's balance in wei.
	CustomerBalance(ctx context.Context) (*big.Int, error)

	DepositMoney(ctx context.Context, value *big.Int) (PendingTx, error)
	WithdrawMoney(ctx context.Context, to string, amount *big.Int) (PendingTx, error)
	SetBankName(ctx context.Context, name Bytes32) (PendingTx, error)
}

// PendingTx is a submitted transaction.
type PendingTx interface {
	Hash() string

	// Wait blocks until the transaction has one confirmation.
	Wait(ctx context.Context) error
}

// JournalStatus is the lifecycle stage of a journaled write.
type JournalStatus string

const (
	JournalSubmitted JournalStatus = "submitted"
	JournalConfirmed JournalStatus = "confirmed"
	JournalFailed    JournalStatus = "failed"
)

// JournalEntry records one stage of a write.
type JournalEntry struct {
	ID        string        `json:"id"`
	Account   string        `json:"account"`
	Kind      WriteKind     `json:"kind"`
	Argument  string        `json:"argument"`
	TxHash    string        `json:"tx_hash"`
	Status    JournalStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Journal persists write history. Implementations live in infrastructure.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
	ListByAccount(ctx context.Context, account string, limit int) ([]JournalEntry, error)
}

// NopJournal discards entries.
type NopJournal struct{}

func (NopJournal) Record(context.Context, JournalEntry) error { return nil }

func (NopJournal) ListByAccount(context.Context, string, int) ([]JournalEntry, error) {
	return nil, nil
}
