package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gdbank/internal/domain/bank"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bank name, owner and your balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, c *bank.Controller) error {
				return printView(cmd.OutOrStdout(), c.View())
			})
		},
	}
}

// newWriteCmd builds a command that stores its argument in field and runs
// write.
func newWriteCmd(use, short string, field bank.Field, write func(*bank.Controller, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *bank.Controller) error {
				if err := c.UpdateField(string(field), args[0]); err != nil {
					return err
				}
				if err := write(c, ctx); err != nil {
					return err
				}
				return printView(cmd.OutOrStdout(), c.View())
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled writes of the connected account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *bank.Controller) error {
				entries, err := c.History(ctx, limit)
				if err != nil {
					return err
				}
				return printHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries, 0 for all")
	return cmd
}

func printView(w io.Writer, v bank.View) error {
	if asJSON {
		return json.NewEncoder(w).Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	name := v.BankName
	if v.ShowNamePrompt {
		name = "(not set, use set-name)"
	}
	fmt.Fprintf(tw, "Bank:\t%s\n", name)
	fmt.Fprintf(tw, "Owner:\t%s\n", v.OwnerAddress)
	fmt.Fprintf(tw, "Wallet:\t%s\n", v.WalletAddress)
	fmt.Fprintf(tw, "Balance:\t%s ETH\n", v.Balance)
	if v.ShowAdminPanel {
		fmt.Fprintf(tw, "Role:\towner\n")
	}
	if v.LastTxHash != "" {
		fmt.Fprintf(tw, "Last tx:\t%s\n", v.LastTxHash)
	}
	if v.ShowError {
		fmt.Fprintf(tw, "Error:\t%s\n", v.ErrorMessage)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []bank.JournalEntry) error {
	if asJSON {
		if entries == nil {
			entries = []bank.JournalEntry{}
		}
		return json.NewEncoder(w).Encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No transactions recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tARGUMENT\tSTATUS\tTX")
	for _, e := range entries {
		status := string(e.Status)
		if e.Error != "" {
			status += " (" + strings.TrimSpace(e.Error) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Argument, status, e.TxHash)
	}
	return tw.Flush()
}
