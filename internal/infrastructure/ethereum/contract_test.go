package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdbank/internal/domain/bank"
)

var (
	testChainID  = big.NewInt(1337)
	bankAddress  = common.HexToAddress("0xa3c862531Ab8691b2A1921144924dea7EC664cC9")
	ownerAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// fakeBackend answers contract calls from fixed values and records every
// transaction sent to it.
type fakeBackend struct {
	mu       sync.Mutex
	name     [32]byte
	balance  *big.Int
	sent     []*types.Transaction
	reverted bool
	callErr  error
	sendErr  error
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if b.callErr != nil {
		return nil, b.callErr
	}
	method, err := BankABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "bankName":
		return method.Outputs.Pack(b.name)
	case "bankOwner":
		return method.Outputs.Pack(ownerAddress)
	case "getCustomerBalance":
		return method.Outputs.Pack(b.balance)
	}
	return nil, errors.New("unexpected call " + method.Name)
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50_000, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1)}, nil
}

func (b *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if b.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(2)}, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return testChainID, nil
}

func (b *fakeBackend) lastSent(t *testing.T) *types.Transaction {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.sent)
	return b.sent[len(b.sent)-1]
}

// keyWallet signs with one in-memory key.
type keyWallet struct {
	key *ecdsa.PrivateKey
	err error
}

func newKeyWallet(t *testing.T) *keyWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keyWallet{key: key}
}

func (w *keyWallet) address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

func (w *keyWallet) Accounts(context.Context) ([]common.Address, error) {
	if w.err != nil {
		return nil, w.err
	}
	return []common.Address{w.address()}, nil
}

func (w *keyWallet) Transactor(context.Context, common.Address) (*bind.TransactOpts, error) {
	if w.err != nil {
		return nil, w.err
	}
	return bind.NewKeyedTransactorWithChainID(w.key, testChainID)
}

func decodeCall(t *testing.T, tx *types.Transaction) (string, []any) {
	t.Helper()
	method, err := BankABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return method.Name, args
}

func TestBankABI_Methods(t *testing.T) {
	for _, name := range []string{"bankName", "bankOwner", "depositMoney", "getCustomerBalance", "setBankName", "withDrawMoney"} {
		_, ok := BankABI.Methods[name]
		assert.True(t, ok, "missing method %s", name)
	}
	assert.True(t, BankABI.Methods["depositMoney"].IsPayable())
}

func TestBankContract_Reads(t *testing.T) {
	backend := &fakeBackend{balance: big.NewInt(1_500_000_000_000_000_000)}
	copy(backend.name[:], "GD Bank")
	provider := NewProvider(backend, bankAddress, newKeyWallet(t))

	contract, err := provider.Bank("")
	require.NoError(t, err)
	ctx := context.Background()

	name, err := contract.BankName(ctx)
	require.NoError(t, err)
	decoded, err := bank.ParseBytes32String(name)
	require.NoError(t, err)
	assert.Equal(t, "GD Bank", decoded)

	owner, err := contract.BankOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, ownerAddress.Hex(), owner)

	balance, err := contract.CustomerBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", balance.String())
}

func TestBankContract_ReadError(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("connection refused")}
	provider := NewProvider(backend, bankAddress, newKeyWallet(t))

	contract, err := provider.Bank("")
	require.NoError(t, err)

	_, err = contract.BankOwner(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bankOwner")
}

func TestBankContract_Deposit(t *testing.T) {
	backend := &fakeBackend{}
	wallet := newKeyWallet(t)
	provider := NewProvider(backend, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	value := big.NewInt(2_000_000_000_000_000_000)
	tx, err := contract.DepositMoney(context.Background(), value)
	require.NoError(t, err)
	require.NoError(t, tx.Wait(context.Background()))

	sent := backend.lastSent(t)
	assert.Equal(t, sent.Hash().Hex(), tx.Hash())
	assert.Equal(t, value, sent.Value())
	assert.Equal(t, bankAddress, *sent.To())

	method, args := decodeCall(t, sent)
	assert.Equal(t, "depositMoney", method)
	assert.Empty(t, args)
}

func TestBankContract_Withdraw(t *testing.T) {
	backend := &fakeBackend{}
	wallet := newKeyWallet(t)
	provider := NewProvider(backend, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	amount := big.NewInt(500)
	_, err = contract.WithdrawMoney(context.Background(), wallet.address().Hex(), amount)
	require.NoError(t, err)

	sent := backend.lastSent(t)
	assert.Zero(t, sent.Value().Sign())
	method, args := decodeCall(t, sent)
	assert.Equal(t, "withDrawMoney", method)
	require.Len(t, args, 2)
	assert.Equal(t, wallet.address(), args[0])
	assert.Equal(t, amount, args[1])
}

func TestBankContract_WithdrawInvalidAddress(t *testing.T) {
	wallet := newKeyWallet(t)
	provider := NewProvider(&fakeBackend{}, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	_, err = contract.WithdrawMoney(context.Background(), "not-an-address", big.NewInt(1))
	require.Error(t, err)
}

func TestBankContract_SetBankName(t *testing.T) {
	backend := &fakeBackend{}
	wallet := newKeyWallet(t)
	provider := NewProvider(backend, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	name, err := bank.FormatBytes32String("Renamed")
	require.NoError(t, err)
	_, err = contract.SetBankName(context.Background(), name)
	require.NoError(t, err)

	method, args := decodeCall(t, backend.lastSent(t))
	assert.Equal(t, "setBankName", method)
	require.Len(t, args, 1)
	assert.Equal(t, [32]byte(name), args[0])
}

func TestBankContract_Reverted(t *testing.T) {
	backend := &fakeBackend{reverted: true}
	wallet := newKeyWallet(t)
	provider := NewProvider(backend, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	tx, err := contract.DepositMoney(context.Background(), big.NewInt(1))
	require.NoError(t, err)

	err = tx.Wait(context.Background())
	require.ErrorIs(t, err, bank.ErrReverted)
}

func TestBankContract_ReadOnlyRejectsWrites(t *testing.T) {
	provider := NewProvider(&fakeBackend{}, bankAddress, newKeyWallet(t))

	contract, err := provider.Bank("")
	require.NoError(t, err)

	_, err = contract.DepositMoney(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, bank.ErrNotConnected)
}

func TestBankContract_SignerRejection(t *testing.T) {
	wallet := newKeyWallet(t)
	provider := NewProvider(&fakeBackend{}, bankAddress, wallet)

	contract, err := provider.Bank(wallet.address().Hex())
	require.NoError(t, err)

	wallet.err = errors.New("Request denied")
	_, err = contract.DepositMoney(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, bank.ErrUserRejected)
}

func TestProvider_RequestAccounts(t *testing.T) {
	wallet := newKeyWallet(t)
	provider := NewProvider(&fakeBackend{}, bankAddress, wallet)

	accounts, err := provider.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{wallet.address().Hex()}, accounts)

	wallet.err = errors.New("user rejected the request")
	_, err = provider.RequestAccounts(context.Background())
	require.ErrorIs(t, err, bank.ErrUserRejected)
}

func TestProvider_BankInvalidAccount(t *testing.T) {
	provider := NewProvider(&fakeBackend{}, bankAddress, newKeyWallet(t))

	_, err := provider.Bank("0x123")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"nil", nil, false},
		{"clef denial", errors.New("Request denied"), true},
		{"wallet rejection", errors.New("User rejected the transaction"), true},
		{"declined", errors.New("signing declined"), true},
		{"locked keystore", keystore.ErrLocked, true},
		{"already classified", bank.ErrUserRejected, true},
		{"network", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.rejected, errors.Is(got, bank.ErrUserRejected))
		})
	}
}

func TestKeystoreWallet_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	chainID := func(context.Context) (*big.Int, error) { return testChainID, nil }

	wallet, err := NewKeystoreWallet(dir, "", chainID)
	require.NoError(t, err)

	accounts, err := wallet.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = wallet.Transactor(context.Background(), ownerAddress)
	require.ErrorIs(t, err, keystore.ErrNoMatch)
}

func TestKeystoreWallet_PasswordFile(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("secret\n"), 0o600))

	wallet, err := NewKeystoreWallet(filepath.Join(dir, "keys"), passwordFile, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", wallet.password)

	_, err = NewKeystoreWallet(dir, filepath.Join(dir, "missing"), nil)
	require.Error(t, err)
}
