package bank

import (
	"fmt"
	"strings"
	"sync"
)

// Field names a form input.
type Field string

const (
	FieldDeposit  Field = "deposit"
	FieldWithdraw Field = "withdraw"
	FieldBankName Field = "bankName"
)

// ParseField maps a form input name onto a Field.
func ParseField(name string) (Field, error) {
	switch f := Field(name); f {
	case FieldDeposit, FieldWithdraw, FieldBankName:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// WriteKind identifies a mutating contract call.
type WriteKind string

const (
	WriteNone     WriteKind = ""
	WriteDeposit  WriteKind = "deposit"
	WriteWithdraw WriteKind = "withdraw"
	WriteRename   WriteKind = "rename"
)

// ErrorSource records which operation last wrote the error slot.
type ErrorSource string

const (
	SourceName     ErrorSource = "bankName"
	SourceOwner    ErrorSource = "bankOwner"
	SourceBalance  ErrorSource = "balance"
	SourceProvider ErrorSource = "provider"
)

type ConnectionState struct {
	WalletConnected bool
	CurrentAddress  string
}

// BankView holds values fetched from the contract. Nil pointers mean the
// value has not been fetched yet.
type BankView struct {
	BankName        *string
	OwnerAddress    *string
	IsViewerOwner   bool
	CustomerBalance *string
}

type FormInputs struct {
	Deposit  string
	Withdraw string
	BankName string
}

// Get returns the raw text of a field.
func (f FormInputs) Get(field Field) string {
	switch field {
	case FieldDeposit:
		return f.Deposit
	case FieldWithdraw:
		return f.Withdraw
	case FieldBankName:
		return f.BankName
	}
	return ""
}

// With returns a copy of f with exactly one field replaced.
func (f FormInputs) With(field Field, value string) (FormInputs, error) {
	switch field {
	case FieldDeposit:
		f.Deposit = value
	case FieldWithdraw:
		f.Withdraw = value
	case FieldBankName:
		f.BankName = value
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return f, nil
}

type ErrorState struct {
	Message string
	Source  ErrorSource
}

type Activity struct {
	Pending    WriteKind
	Loading    bool
	LastTxHash string
}

// State is the complete UI state of one session.
type State struct {
	Connection ConnectionState
	Bank       BankView
	Inputs     FormInputs
	Error      ErrorState
	Activity   Activity
}

// IsOwner reports whether owner and viewer name the same account.
func IsOwner(owner, viewer string) bool {
	if owner == "" || viewer == "" {
		return false
	}
	return strings.EqualFold(owner, viewer)
}

// Action is a state transition applied by Reduce.
type Action interface {
	apply(s *State)
}

type Connected struct{ Address string }

type BankNameLoaded struct{ Name string }

type OwnerLoaded struct{ Owner string }

// BalanceLoaded carries the balance read for Account. It is dropped when the
// session has switched to another account since the read began.
type BalanceLoaded struct {
	Account string
	Balance string
}

type FieldChanged struct {
	Field Field
	Value string
}

type Failed struct {
	Source  ErrorSource
	Message string
}

type LoadingChanged struct{ Loading bool }

type WriteStarted struct{ Kind WriteKind }

type WriteFinished struct{ TxHash string }

func (a Connected) apply(s *State) {
	s.Connection = ConnectionState{WalletConnected: true, CurrentAddress: a.Address}
}

func (a BankNameLoaded) apply(s *State) {
	name := a.Name
	s.Bank.BankName = &name
}

// Owner checks are recomputed here and nowhere else.
func (a OwnerLoaded) apply(s *State) {
	owner := a.Owner
	s.Bank.OwnerAddress = &owner
	s.Bank.IsViewerOwner = IsOwner(owner, s.Connection.CurrentAddress)
}

func (a BalanceLoaded) apply(s *State) {
	if a.Account != s.Connection.CurrentAddress {
		return
	}
	balance := a.Balance
	s.Bank.CustomerBalance = &balance
}

func (a FieldChanged) apply(s *State) {
	if inputs, err := s.Inputs.With(a.Field, a.Value); err == nil {
		s.Inputs = inputs
	}
}

func (a Failed) apply(s *State) {
	s.Error = ErrorState{Message: a.Message, Source: a.Source}
}

func (a LoadingChanged) apply(s *State) {
	s.Activity.Loading = a.Loading
}

func (a WriteStarted) apply(s *State) {
	s.Activity.Pending = a.Kind
}

func (a WriteFinished) apply(s *State) {
	s.Activity.Pending = WriteNone
	if a.TxHash != "" {
		s.Activity.LastTxHash = a.TxHash
	}
}

// Reduce applies an action to a copy of s and returns the result.
func Reduce(s State, a Action) State {
	s.Bank = s.Bank.clone()
	a.apply(&s)
	return s
}

func (v BankView) clone() BankView {
	out := v
	out.BankName = cloneString(v.BankName)
	out.OwnerAddress = cloneString(v.OwnerAddress)
	out.CustomerBalance = cloneString(v.CustomerBalance)
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store holds the state of one session. Every change goes through Dispatch.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

// Dispatch applies actions in order and returns the resulting state.
func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	return s.state.snapshot()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

func (s State) snapshot() State {
	s.Bank = s.Bank.clone()
	return s
}
