package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"gdbank/internal/domain/bank"
)

// Wallet is an account holder able to sign transactions.
type Wallet interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
}

// Provider exposes a wallet and a node connection to the bank controller.
type Provider struct {
	backend Backend
	address common.Address
	wallet  Wallet
}

var _ bank.Provider = (*Provider)(nil)

// NewProvider binds the contract at address through backend. wallet signs
// every write.
func NewProvider(backend Backend, address common.Address, wallet Wallet) *Provider {
	return &Provider{backend: backend, address: address, wallet: wallet}
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return client, nil
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	addrs, err := p.wallet.Accounts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out, nil
}

// Bank returns a binding acting as account. An empty account yields a
// read-only binding.
func (p *Provider) Bank(account string) (bank.Contract, error) {
	if account == "" {
		return NewBankContract(p.address, p.backend, common.Address{}, nil), nil
	}
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account %q", account)
	}
	from := common.HexToAddress(account)
	return NewBankContract(p.address, p.backend, from, func(ctx context.Context) (*bind.TransactOpts, error) {
		return p.wallet.Transactor(ctx, from)
	}), nil
}

// ClefWallet signs through an external Clef signer. The connection is
// opened on first use so the server can start before the signer does.
type ClefWallet struct {
	endpoint string

	mu     sync.Mutex
	signer *external.ExternalSigner
}

func NewClefWallet(endpoint string) *ClefWallet {
	return &ClefWallet{endpoint: endpoint}
}

func (w *ClefWallet) connect() (*external.ExternalSigner, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.signer != nil {
		return w.signer, nil
	}
	signer, err := external.NewExternalSigner(w.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect clef %s: %w", w.endpoint, err)
	}
	w.signer = signer
	return signer, nil
}

func (w *ClefWallet) Accounts(_ context.Context) ([]common.Address, error) {
	signer, err := w.connect()
	if err != nil {
		return nil, err
	}
	return addresses(signer.Accounts()), nil
}

func (w *ClefWallet) Transactor(_ context.Context, account common.Address) (*bind.TransactOpts, error) {
	signer, err := w.connect()
	if err != nil {
		return nil, err
	}
	return bind.NewClefTransactor(signer, accounts.Account{Address: account}), nil
}

// KeystoreWallet signs with keys from an encrypted keystore directory.
type KeystoreWallet struct {
	ks       *keystore.KeyStore
	password string
	chainID  func(ctx context.Context) (*big.Int, error)
}

// NewKeystoreWallet opens dir and reads the unlock password from
// passwordFile. An empty passwordFile leaves the accounts locked.
func NewKeystoreWallet(dir, passwordFile string, chainID func(ctx context.Context) (*big.Int, error)) (*KeystoreWallet, error) {
	var password string
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("read keystore password: %w", err)
		}
		password = strings.TrimRight(string(data), "\r\n")
	}
	return &KeystoreWallet{
		ks:       keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		password: password,
		chainID:  chainID,
	}, nil
}

func (w *KeystoreWallet) Accounts(_ context.Context) ([]common.Address, error) {
	return addresses(w.ks.Accounts()), nil
}

func (w *KeystoreWallet) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	acct := accounts.Account{Address: account}
	if err := w.ks.Unlock(acct, w.password); err != nil {
		if errors.Is(err, keystore.ErrNoMatch) {
			return nil, fmt.Errorf("account %s not in keystore: %w", account.Hex(), err)
		}
		return nil, classify(err)
	}
	chainID, err := w.chainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return bind.NewKeyStoreTransactorWithChainID(w.ks, acct, chainID)
}

func addresses(accts []accounts.Account) []common.Address {
	out := make([]common.Address, len(accts))
	for i, a := range accts {
		out[i] = a.Address
	}
	return out
}
