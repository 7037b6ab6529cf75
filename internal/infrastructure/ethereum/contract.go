package ethereum

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"gdbank/internal/domain/bank"
)

//go:embed abi/Bank.json
var bankABIJSON []byte

// BankABI is the parsed interface description of the deployed contract.
var BankABI = mustParseABI(bankABIJSON)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("invalid bank ABI: %v", err))
	}
	return parsed
}

// Backend is what the binding needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// TransactorFunc returns signing options for one transaction.
type TransactorFunc func(ctx context.Context) (*bind.TransactOpts, error)

// BankContract binds the Bank contract at a fixed address to one account.
type BankContract struct {
	contract   *bind.BoundContract
	backend    Backend
	from       common.Address
	transactor TransactorFunc
}

var _ bank.Contract = (*BankContract)(nil)

// NewBankContract creates a binding that reads as from and signs with
// transactor. A nil transactor yields a read-only binding.
func NewBankContract(address common.Address, backend Backend, from common.Address, transactor TransactorFunc) *BankContract {
	return &BankContract{
		contract:   bind.NewBoundContract(address, BankABI, backend, backend, backend),
		backend:    backend,
		from:       from,
		transactor: transactor,
	}
}

func (b *BankContract) call(ctx context.Context, method string) (any, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx, From: b.from}
	if err := b.contract.Call(opts, &out, method); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("call %s: expected 1 output, got %d", method, len(out))
	}
	return out[0], nil
}

func (b *BankContract) BankName(ctx context.Context) (bank.Bytes32, error) {
	v, err := b.call(ctx, "bankName")
	if err != nil {
		return bank.Bytes32{}, err
	}
	raw := *abi.ConvertType(v, new([32]byte)).(*[32]byte)
	return bank.Bytes32(raw), nil
}

func (b *BankContract) BankOwner(ctx context.Context) (string, error) {
	v, err := b.call(ctx, "bankOwner")
	if err != nil {
		return "", err
	}
	owner := *abi.ConvertType(v, new(common.Address)).(*common.Address)
	return owner.Hex(), nil
}

func (b *BankContract) CustomerBalance(ctx context.Context) (*big.Int, error) {
	v, err := b.call(ctx, "getCustomerBalance")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int), nil
}

func (b *BankContract) DepositMoney(ctx context.Context, value *big.Int) (bank.PendingTx, error) {
	return b.transact(ctx, value, "depositMoney")
}

func (b *BankContract) WithdrawMoney(ctx context.Context, to string, amount *big.Int) (bank.PendingTx, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("withDrawMoney: invalid address %q", to)
	}
	return b.transact(ctx, nil, "withDrawMoney", common.HexToAddress(to), amount)
}

func (b *BankContract) SetBankName(ctx context.Context, name bank.Bytes32) (bank.PendingTx, error) {
	return b.transact(ctx, nil, "setBankName", [32]byte(name))
}

func (b *BankContract) transact(ctx context.Context, value *big.Int, method string, params ...any) (bank.PendingTx, error) {
	if b.transactor == nil {
		return nil, fmt.Errorf("%s: %w", method, bank.ErrNotConnected)
	}
	opts, err := b.transactor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := b.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}
	return &pendingTx{tx: tx, backend: b.backend}, nil
}

// pendingTx waits for a receipt through the node connection.
type pendingTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
}

func (p *pendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return fmt.Errorf("wait %s: %w", p.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s in block %s", bank.ErrReverted, p.Hash(), receipt.BlockNumber)
	}
	return nil
}
