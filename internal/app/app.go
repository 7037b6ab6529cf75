// Package app assembles the bank controller's collaborators from
// configuration. The API server and bankctl share it.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gdbank/internal/domain/bank"
	"gdbank/internal/infrastructure/ethereum"
	"gdbank/internal/infrastructure/leveldb"
	"gdbank/internal/infrastructure/postgres"
	"gdbank/internal/shared/config"
	"gdbank/internal/shared/messages"
)

// Backends holds the long-lived resources every controller shares.
type Backends struct {
	Provider bank.Provider
	Journal  bank.Journal
	Messages *messages.Messages

	confirmTimeout time.Duration
	closers        []func() error
}

// Open connects the wallet, node and journal selected by cfg. With
// WALLET_MODE=none Provider is nil, which controllers treat as a browser
// without a wallet.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	msgs, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		return nil, err
	}

	b := &Backends{
		Messages:       msgs,
		Journal:        bank.NopJournal{},
		confirmTimeout: cfg.Ethereum.ConfirmTimeout,
	}

	if err := b.openProvider(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openJournal(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backends) openProvider(ctx context.Context, cfg *config.Config) error {
	if cfg.Wallet.Mode == config.WalletNone {
		log.Println("Wallet disabled")
		return nil
	}

	client, err := ethereum.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() error { client.Close(); return nil })

	var wallet ethereum.Wallet
	switch cfg.Wallet.Mode {
	case config.WalletClef:
		wallet = ethereum.NewClefWallet(cfg.Wallet.ClefEndpoint)
	case config.WalletKeystore:
		wallet, err = ethereum.NewKeystoreWallet(cfg.Wallet.KeystoreDir, cfg.Wallet.KeystorePasswordFile, client.ChainID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported wallet mode %q", cfg.Wallet.Mode)
	}

	b.Provider = ethereum.NewProvider(client, cfg.Ethereum.ContractAddress, wallet)
	log.Printf("Wallet %s connected to %s, bank contract %s", cfg.Wallet.Mode, cfg.Ethereum.RPCURL, cfg.Ethereum.ContractAddress.Hex())
	return nil
}

func (b *Backends) openJournal(ctx context.Context, cfg *config.Config) error {
	switch cfg.Journal.Backend {
	case config.JournalNone, "":
		return nil

	case config.JournalPostgres:
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		b.closers = append(b.closers, db.Close)

		repo := postgres.NewJournalRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		b.Journal = repo
		log.Println("Journal: postgres")

	case config.JournalLevelDB:
		j, err := leveldb.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, j.Close)
		b.Journal = j
		log.Printf("Journal: leveldb at %s", cfg.Journal.Path)

	default:
		return fmt.Errorf("unsupported journal backend %q", cfg.Journal.Backend)
	}
	return nil
}

// NewController creates a controller over the shared backends.
func (b *Backends) NewController(logger *log.Logger) *bank.Controller {
	return bank.NewController(b.Provider, bank.Options{
		Journal:        b.Journal,
		Messages:       b.Messages,
		Logger:         logger,
		ConfirmTimeout: b.confirmTimeout,
	})
}

// Close releases resources in reverse order of acquisition.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Printf("Error closing backend: %v", err)
		}
	}
	b.closers = nil
}
