package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gdbank/internal/app"
	"gdbank/internal/domain/bank"
	"gdbank/internal/shared/config"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	GitCommit = "unknown"

	// Global flags
	timeout time.Duration
	verbose bool
	asJSON  bool
)

// openSession returns a mounted controller and a function releasing its
// backends. Tests replace it.
var openSession = func(ctx context.Context, logs io.Writer) (*bank.Controller, func(), error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, nil, err
	}
	backends, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return backends.NewController(log.New(logs, "", log.LstdFlags)), backends.Close, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bankctl",
		Short: "Terminal client for the GD bank contract",
		Long: `bankctl talks to the deployed bank contract through the wallet configured
in the environment (WALLET_MODE, ETH_RPC_URL, BANK_CONTRACT_ADDRESS).

Every command connects the wallet's first account before it runs.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "give up after this long, including the wait for confirmation")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print wallet and contract logs")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print output as JSON")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newWriteCmd("deposit AMOUNT", "Deposit ETH into the bank", bank.FieldDeposit, (*bank.Controller).Deposit))
	root.AddCommand(newWriteCmd("withdraw AMOUNT", "Withdraw ETH to the connected account", bank.FieldWithdraw, (*bank.Controller).Withdraw))
	root.AddCommand(newWriteCmd("set-name NAME", "Rename the bank (owner only)", bank.FieldBankName, (*bank.Controller).SetBankName))
	root.AddCommand(newHistoryCmd())

	return root
}

// withSession runs fn against a freshly mounted controller.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, c *bank.Controller) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logs := io.Discard
	if verbose {
		logs = cmd.ErrOrStderr()
	}

	c, closeFn, err := openSession(ctx, logs)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := c.Mount(ctx); err != nil {
		// Read failures are shown in the status output; only a missing or
		// refusing wallet stops the command.
		if !c.State().Connection.WalletConnected {
			return fmt.Errorf("connect wallet: %w", err)
		}
	}
	return fn(ctx, c)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
