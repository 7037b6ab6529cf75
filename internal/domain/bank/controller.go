package bank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"gdbank/internal/shared/messages"
)

var (
	bankTracer       = otel.Tracer("gdbank/bank")
	bankMeter        = otel.Meter("gdbank/bank")
	contractCalls, _ = bankMeter.Int64Counter("bank.contract.calls",
		metric.WithDescription("Contract calls by method and status"),
	)
	writeDuration, _ = bankMeter.Float64Histogram("bank.write.duration",
		metric.WithDescription("Time from submission to confirmation in seconds"),
		metric.WithUnit("s"),
	)
)

// Options configures a Controller. Zero values select defaults.
type Options struct {
	Journal  Journal
	Messages *messages.Messages
	Logger   *log.Logger

	// ConfirmTimeout bounds the wait for a confirmation. Zero waits for as
	// long as ctx allows.
	ConfirmTimeout time.Duration
}

// Controller owns the UI state of one session and sequences every wallet
// and contract call made on its behalf.
type Controller struct {
	provider       Provider
	store          *Store
	journal        Journal
	messages       messages.Messages
	logger         *log.Logger
	confirmTimeout time.Duration

	writes *semaphore.Weighted
	reads  singleflight.Group
}

// NewController creates a controller. A nil provider models a browser
// without a wallet extension.
func NewController(provider Provider, opts Options) *Controller {
	c := &Controller{
		provider:       provider,
		store:          NewStore(),
		journal:        opts.Journal,
		messages:       messages.Default(),
		logger:         opts.Logger,
		confirmTimeout: opts.ConfirmTimeout,
		writes:         semaphore.NewWeighted(1),
	}
	if c.journal == nil {
		c.journal = NopJournal{}
	}
	if opts.Messages != nil {
		c.messages = *opts.Messages
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	return c.store.Snapshot()
}

// View renders the current state.
func (c *Controller) View() View {
	return Render(c.store.Snapshot())
}

// UpdateField replaces the raw text of one form input.
func (c *Controller) UpdateField(name, value string) error {
	field, err := ParseField(name)
	if err != nil {
		return err
	}
	c.store.Dispatch(FieldChanged{Field: field, Value: value})
	return nil
}

// Mount runs the page-load sequence: connect, then load name, owner and
// balance.
func (c *Controller) Mount(ctx context.Context) error {
	c.store.Dispatch(LoadingChanged{Loading: true})
	defer c.store.Dispatch(LoadingChanged{Loading: false})

	_, err := c.connect(ctx)
	return errors.Join(err, c.Refresh(ctx))
}

// Connect requests the wallet's accounts and selects the first one. Name,
// owner and balance are reloaded when the connection changes.
func (c *Controller) Connect(ctx context.Context) error {
	changed, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if changed {
		return c.Refresh(ctx)
	}
	return nil
}

func (c *Controller) connect(ctx context.Context) (bool, error) {
	if c.provider == nil {
		c.failProvider()
		return false, ErrNoProvider
	}

	ctx, span := bankTracer.Start(ctx, "wallet.request_accounts")
	defer span.End()

	accounts, err := c.provider.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = ErrNoAccounts
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Printf("Wallet connect failed: %v", err)
		return false, fmt.Errorf("request accounts: %w", err)
	}

	account := accounts[0]
	prev := c.store.Snapshot().Connection
	c.store.Dispatch(Connected{Address: account})
	c.logger.Printf("Account connected: %s", account)

	changed := !prev.WalletConnected || prev.CurrentAddress != account
	return changed, nil
}

// Refresh reloads name, owner and balance concurrently. Every read runs to
// completion even when another fails; each failure is already logged and in
// the error slot. The first error is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.RefreshBankName(ctx) })
	g.Go(func() error { return c.RefreshOwner(ctx) })
	g.Go(func() error { return c.RefreshBalance(ctx) })
	return g.Wait()
}

// RefreshBankName reads and decodes the bank name.
func (c *Controller) RefreshBankName(ctx context.Context) error {
	v, err, _ := c.reads.Do(string(SourceName), func() (any, error) {
		contract, err := c.reader()
		if err != nil {
			return nil, err
		}
		raw, err := traced(ctx, "bankName", func(ctx context.Context) (Bytes32, error) {
			return contract.BankName(ctx)
		})
		if err != nil {
			return nil, err
		}
		return ParseBytes32String(raw)
	})
	if err != nil {
		return c.failRead(SourceName, err)
	}

	c.store.Dispatch(BankNameLoaded{Name: v.(string)})
	return nil
}

// RefreshOwner reads the owner address and recomputes the owner flag.
func (c *Controller) RefreshOwner(ctx context.Context) error {
	v, err, _ := c.reads.Do(string(SourceOwner), func() (any, error) {
		contract, err := c.reader()
		if err != nil {
			return nil, err
		}
		return traced(ctx, "bankOwner", contract.BankOwner)
	})
	if err != nil {
		return c.failRead(SourceOwner, err)
	}

	c.store.Dispatch(OwnerLoaded{Owner: v.(string)})
	return nil
}

// RefreshBalance reads the connected account's balance. It is a no-op until
// a wallet is connected.
func (c *Controller) RefreshBalance(ctx context.Context) error {
	conn := c.store.Snapshot().Connection
	if c.provider != nil && !conn.WalletConnected {
		return nil
	}
	account := conn.CurrentAddress

	v, err, _ := c.reads.Do(string(SourceBalance)+":"+account, func() (any, error) {
		if c.provider == nil {
			return nil, ErrNoProvider
		}
		contract, err := c.provider.Bank(account)
		if err != nil {
			return nil, err
		}
		wei, err := traced(ctx, "getCustomerBalance", contract.CustomerBalance)
		if err != nil {
			return nil, err
		}
		c.logger.Printf("Retrieved balance: %s wei", wei)
		return FormatEther(wei), nil
	})
	if err != nil {
		return c.failRead(SourceBalance, err)
	}

	c.store.Dispatch(BalanceLoaded{Account: account, Balance: v.(string)})
	return nil
}

func (c *Controller) reader() (Contract, error) {
	if c.provider == nil {
		return nil, ErrNoProvider
	}
	return c.provider.Bank(c.store.Snapshot().Connection.CurrentAddress)
}

func (c *Controller) failProvider() {
	c.logger.Println("No wallet provider detected")
	c.store.Dispatch(Failed{Source: SourceProvider, Message: c.messages.InstallWallet})
}

func (c *Controller) failRead(source ErrorSource, err error) error {
	if errors.Is(err, ErrNoProvider) {
		c.failProvider()
		return err
	}
	c.logger.Printf("Read %s failed: %v", source, err)
	c.store.Dispatch(Failed{Source: source, Message: c.messages.ReadFailed})
	return fmt.Errorf("read %s: %w", source, err)
}

// Deposit sends the amount currently in the deposit field.
func (c *Controller) Deposit(ctx context.Context) error {
	return c.DepositAmount(ctx, c.store.Snapshot().Inputs.Deposit)
}

// DepositAmount sends raw, a decimal ether amount, to the contract.
func (c *Controller) DepositAmount(ctx context.Context, raw string) error {
	return c.write(ctx, WriteDeposit, raw, func(ctx context.Context, contract Contract, s State) (PendingTx, error) {
		amount, err := ParseEther(raw)
		if err != nil {
			return nil, err
		}
		return contract.DepositMoney(ctx, amount)
	}, c.RefreshBalance)
}

// Withdraw takes out the amount currently in the withdraw field.
func (c *Controller) Withdraw(ctx context.Context) error {
	return c.WithdrawAmount(ctx, c.store.Snapshot().Inputs.Withdraw)
}

// WithdrawAmount moves raw ether back to the connected account.
func (c *Controller) WithdrawAmount(ctx context.Context, raw string) error {
	return c.write(ctx, WriteWithdraw, raw, func(ctx context.Context, contract Contract, s State) (PendingTx, error) {
		amount, err := ParseEther(raw)
		if err != nil {
			return nil, err
		}
		return contract.WithdrawMoney(ctx, s.Connection.CurrentAddress, amount)
	}, c.RefreshBalance)
}

// SetBankName renames the bank to the text currently in the bank name field.
func (c *Controller) SetBankName(ctx context.Context) error {
	return c.RenameBank(ctx, c.store.Snapshot().Inputs.BankName)
}

// RenameBank renames the bank to name. The contract rejects callers other
// than the owner.
func (c *Controller) RenameBank(ctx context.Context, name string) error {
	return c.write(ctx, WriteRename, name, func(ctx context.Context, contract Contract, s State) (PendingTx, error) {
		slot, err := FormatBytes32String(name)
		if err != nil {
			return nil, err
		}
		return contract.SetBankName(ctx, slot)
	}, c.RefreshBankName)
}

type submitFunc func(ctx context.Context, contract Contract, s State) (PendingTx, error)

// write submits a transaction, waits for one confirmation and then runs
// refresh. arg is the user's input as journaled. Only one write per
// controller may be in flight.
func (c *Controller) write(ctx context.Context, kind WriteKind, arg string, submit submitFunc, refresh func(context.Context) error) error {
	if !c.writes.TryAcquire(1) {
		c.logger.Printf("Rejected %s: %v", kind, ErrWriteInFlight)
		return ErrWriteInFlight
	}
	defer c.writes.Release(1)

	if c.provider == nil {
		c.failProvider()
		return ErrNoProvider
	}
	s := c.store.Snapshot()
	if !s.Connection.WalletConnected {
		c.logger.Printf("Rejected %s: %v", kind, ErrNotConnected)
		return ErrNotConnected
	}

	contract, err := c.provider.Bank(s.Connection.CurrentAddress)
	if err != nil {
		c.logger.Printf("%s failed: %v", kind, err)
		return fmt.Errorf("%s: %w", kind, err)
	}

	ctx, span := bankTracer.Start(ctx, "bank.write."+string(kind))
	defer span.End()

	var confirmed string
	c.store.Dispatch(WriteStarted{Kind: kind})
	defer func() { c.store.Dispatch(WriteFinished{TxHash: confirmed}) }()

	tx, err := submit(ctx, contract, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		contractCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", string(kind)),
			attribute.String("status", "error"),
		))
		c.logger.Printf("%s failed: %v", kind, err)
		return fmt.Errorf("%s: %w", kind, err)
	}

	entry := JournalEntry{
		Account:  s.Connection.CurrentAddress,
		Kind:     kind,
		Argument: arg,
		TxHash:   tx.Hash(),
	}
	c.record(ctx, entry, JournalSubmitted, nil)
	c.logger.Printf("%s submitted: %s", kind, tx.Hash())
	span.SetAttributes(attribute.String("tx.hash", tx.Hash()))

	waitCtx := ctx
	if c.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.confirmTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := tx.Wait(waitCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		contractCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", string(kind)),
			attribute.String("status", "error"),
		))
		c.record(ctx, entry, JournalFailed, err)
		c.logger.Printf("%s failed: %s: %v", kind, tx.Hash(), err)
		return fmt.Errorf("%s: %w", kind, err)
	}
	writeDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("method", string(kind))))
	contractCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(kind)),
		attribute.String("status", "success"),
	))

	confirmed = tx.Hash()
	c.record(ctx, entry, JournalConfirmed, nil)
	c.logger.Printf("%s done: %s", kind, tx.Hash())

	// Refresh failures are reported through the error slot; the write itself
	// succeeded.
	_ = refresh(ctx)
	return nil
}

func (c *Controller) record(ctx context.Context, entry JournalEntry, status JournalStatus, cause error) {
	entry.ID = uuid.NewString()
	entry.Status = status
	entry.CreatedAt = time.Now().UTC()
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := c.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Printf("Journal %s %s failed: %v", entry.Kind, status, err)
	}
}

// History lists journaled writes of the connected account, newest first.
func (c *Controller) History(ctx context.Context, limit int) ([]JournalEntry, error) {
	s := c.store.Snapshot()
	if !s.Connection.WalletConnected {
		return nil, ErrNotConnected
	}
	return c.journal.ListByAccount(ctx, s.Connection.CurrentAddress, limit)
}

// traced runs a contract read inside a span and counts it.
func traced[T any](ctx context.Context, method string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := bankTracer.Start(ctx, "bank.read."+method)
	defer span.End()

	v, err := fn(ctx)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	contractCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	return v, err
}
