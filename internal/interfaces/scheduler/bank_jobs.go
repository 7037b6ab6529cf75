package scheduler

import (
	"context"
	"errors"
	"fmt"

	"gdbank/internal/domain/bank"
)

// Action names a controller operation run as a job.
type Action string

const (
	ActionMount          Action = "mount"
	ActionConnect        Action = "connect"
	ActionRefresh        Action = "refresh"
	ActionRefreshBalance Action = "refresh-balance"
	ActionDeposit        Action = "deposit"
	ActionWithdraw       Action = "withdraw"
	ActionSetBankName    Action = "set-bank-name"
)

// BankJob runs one controller operation for a session. The controller has
// already logged any failure and put it in the session's state; the error is
// returned for job metrics.
type BankJob struct {
	sessionID  string
	action     Action
	controller *bank.Controller
	arg        string
	next       *BankJob
}

func NewBankJob(sessionID string, action Action, controller *bank.Controller) *BankJob {
	return &BankJob{sessionID: sessionID, action: action, controller: controller}
}

// NewWriteJob runs a deposit, withdrawal or rename with arg, the input as the
// user submitted it.
func NewWriteJob(sessionID string, action Action, controller *bank.Controller, arg string) *BankJob {
	return &BankJob{sessionID: sessionID, action: action, controller: controller, arg: arg}
}

// Then runs next on the same worker once j has finished, whatever j
// returned.
func (j *BankJob) Then(next *BankJob) *BankJob {
	j.next = next
	return j
}

func (j *BankJob) Execute(ctx context.Context) error {
	err := j.execute(ctx)
	if j.next != nil {
		err = errors.Join(err, j.next.Execute(ctx))
	}
	return err
}

func (j *BankJob) execute(ctx context.Context) error {
	c := j.controller
	switch j.action {
	case ActionMount:
		return c.Mount(ctx)
	case ActionConnect:
		return c.Connect(ctx)
	case ActionRefresh:
		return c.Refresh(ctx)
	case ActionRefreshBalance:
		return c.RefreshBalance(ctx)
	case ActionDeposit:
		return c.DepositAmount(ctx, j.arg)
	case ActionWithdraw:
		return c.WithdrawAmount(ctx, j.arg)
	case ActionSetBankName:
		return c.RenameBank(ctx, j.arg)
	}
	return fmt.Errorf("unknown action %q", j.action)
}

func (j *BankJob) SessionID() string {
	return j.sessionID
}

func (j *BankJob) Description() string {
	if j.next != nil {
		return string(j.action) + "+" + j.next.Description()
	}
	return string(j.action)
}
