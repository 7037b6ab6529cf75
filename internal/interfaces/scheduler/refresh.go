package scheduler

import (
	"context"

	"gdbank/internal/domain/bank"
)

// Sessions enumerates live session controllers.
type Sessions interface {
	Each(fn func(id string, c *bank.Controller))
}

// BalanceRefreshJobs returns a job provider that refreshes the balance of
// every connected, idle session.
func BalanceRefreshJobs(sessions Sessions) func(context.Context) []Job {
	return func(context.Context) []Job {
		var jobs []Job
		sessions.Each(func(id string, c *bank.Controller) {
			s := c.State()
			if !s.Connection.WalletConnected || s.Activity.Pending != bank.WriteNone {
				return
			}
			jobs = append(jobs, NewBankJob(id, ActionRefreshBalance, c))
		})
		return jobs
	}
}

// SettledWriteJobs returns the jobs that bring sessions up to date after a
// write by account settled elsewhere. A rename changes what every session
// shows; deposits and withdrawals only touch sessions connected as account.
func SettledWriteJobs(sessions Sessions, account string, kind bank.WriteKind) []Job {
	var jobs []Job
	sessions.Each(func(id string, c *bank.Controller) {
		s := c.State()
		if s.Activity.Pending != bank.WriteNone {
			return
		}
		switch {
		case kind == bank.WriteRename:
			jobs = append(jobs, NewBankJob(id, ActionRefresh, c))
		case s.Connection.WalletConnected && bank.IsOwner(account, s.Connection.CurrentAddress):
			jobs = append(jobs, NewBankJob(id, ActionRefreshBalance, c))
		}
	})
	return jobs
}
