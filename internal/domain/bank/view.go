package bank

// View is the display model derived from State.
type View struct {
	ErrorMessage   string `json:"error,omitempty"`
	ShowError      bool   `json:"showError"`
	ShowNamePrompt bool   `json:"showNamePrompt"`
	BankName       string `json:"bankName"`
	Balance        string `json:"balance"`
	OwnerAddress   string `json:"ownerAddress"`
	ShowWallet     bool   `json:"showWallet"`
	WalletAddress  string `json:"walletAddress,omitempty"`
	ConnectLabel   string `json:"connectLabel"`
	ShowAdminPanel bool   `json:"showAdminPanel"`
	Pending        bool   `json:"pending"`
	PendingLabel   string `json:"pendingLabel,omitempty"`
	LastTxHash     string `json:"lastTxHash,omitempty"`

	Deposit  string `json:"deposit"`
	Withdraw string `json:"withdraw"`
	NewName  string `json:"newName"`
}

const (
	labelConnected    = "Wallet Connected 🔒"
	labelDisconnected = "Connect Wallet 🔑"
)

// Render derives the page from state. It has no side effects.
func Render(s State) View {
	v := View{
		ErrorMessage:   s.Error.Message,
		ShowError:      s.Error.Message != "",
		ShowWallet:     s.Connection.WalletConnected,
		ShowAdminPanel: s.Bank.IsViewerOwner,
		ConnectLabel:   labelDisconnected,
		LastTxHash:     s.Activity.LastTxHash,
		Deposit:        s.Inputs.Deposit,
		Withdraw:       s.Inputs.Withdraw,
		NewName:        s.Inputs.BankName,
	}

	if s.Connection.WalletConnected {
		v.WalletAddress = s.Connection.CurrentAddress
		v.ConnectLabel = labelConnected
	}

	// Non-owners see the stored name as-is, blank included.
	if s.Bank.BankName != nil && *s.Bank.BankName == "" && s.Bank.IsViewerOwner {
		v.ShowNamePrompt = true
	} else if s.Bank.BankName != nil {
		v.BankName = *s.Bank.BankName
	}

	if s.Bank.CustomerBalance != nil {
		v.Balance = *s.Bank.CustomerBalance
	}
	if s.Bank.OwnerAddress != nil {
		v.OwnerAddress = *s.Bank.OwnerAddress
	}

	switch s.Activity.Pending {
	case WriteDeposit:
		v.PendingLabel = "Depositing money..."
	case WriteWithdraw:
		v.PendingLabel = "Withdrawing money..."
	case WriteRename:
		v.PendingLabel = "Setting bank name..."
	default:
		if s.Activity.Loading {
			v.PendingLabel = "Loading..."
		}
	}
	v.Pending = v.PendingLabel != ""

	return v
}
