package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"gdbank/internal/domain/bank"
	"gdbank/internal/interfaces/scheduler"
	"gdbank/internal/shared/middleware"
)

// historyLimit caps the journal entries shown with the page.
const historyLimit = 10

var errInvalidForm = errors.New("invalid form")

// Sessions resolves a session id to its controller, creating it on first
// use.
type Sessions interface {
	Get(id string) (c *bank.Controller, created bool)
}

// Jobs queues controller work off the request path.
type Jobs interface {
	Submit(job scheduler.Job) error
}

// BankHandler serves the bank page and its form posts. Every wallet or
// contract call runs as a job; handlers only touch session state and
// redirect back to the page.
type BankHandler struct {
	sessions Sessions
	jobs     Jobs
	pages    *PageRenderer
}

func NewBankHandler(sessions Sessions, jobs Jobs, pages *PageRenderer) *BankHandler {
	return &BankHandler{sessions: sessions, jobs: jobs, pages: pages}
}

// StateResponse is the JSON form of a session.
type StateResponse struct {
	View    bank.View           `json:"view"`
	History []bank.JournalEntry `json:"history"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

// session returns the caller's controller. A new session starts its
// page-load sequence in the background.
func (h *BankHandler) session(r *http.Request) (string, *bank.Controller) {
	id := middleware.SessionID(r.Context())
	c, created := h.sessions.Get(id)
	if created {
		h.queue(id, scheduler.NewBankJob(id, scheduler.ActionMount, c))
	}
	return id, c
}

func (h *BankHandler) queue(id string, job *scheduler.BankJob) error {
	err := h.jobs.Submit(job)
	if err != nil {
		log.Printf("Error queueing %s for session %s: %v", job.Description(), id, err)
	}
	return err
}

// HandlePage renders the bank page for the caller's session.
func (h *BankHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	_, c := h.session(r)
	h.pages.Render(w, Page{View: c.View(), History: h.history(r, c)})
}

// HandleConnect asks the wallet for its accounts.
func (h *BankHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, scheduler.ActionConnect, "")
}

// HandleRefresh reloads name, owner and balance.
func (h *BankHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, scheduler.ActionRefresh, "")
}

// HandleDeposit stores the posted amount and starts a deposit.
func (h *BankHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, scheduler.ActionDeposit, bank.FieldDeposit)
}

// HandleWithdraw stores the posted amount and starts a withdrawal.
func (h *BankHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, scheduler.ActionWithdraw, bank.FieldWithdraw)
}

// HandleSetBankName stores the posted name and starts a rename.
func (h *BankHandler) HandleSetBankName(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, scheduler.ActionSetBankName, bank.FieldBankName)
}

// submit copies field from the form, queues action and redirects to the
// page. On a new session the job runs after the page-load sequence.
func (h *BankHandler) submit(w http.ResponseWriter, r *http.Request, action scheduler.Action, field bank.Field) {
	id := middleware.SessionID(r.Context())
	c, created := h.sessions.Get(id)

	job, err := newJob(r, id, c, action, field)
	if created {
		mount := scheduler.NewBankJob(id, scheduler.ActionMount, c)
		if err != nil {
			h.queue(id, mount)
		} else {
			job = mount.Then(job)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.queue(id, job); err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// newJob builds the job for action. A write job carries the posted value, so
// later edits of the field do not change what is sent. Writes are refused
// while another write of the session is pending.
func newJob(r *http.Request, id string, c *bank.Controller, action scheduler.Action, field bank.Field) (*scheduler.BankJob, error) {
	if field == "" {
		return scheduler.NewBankJob(id, action, c), nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}
	value := r.PostForm.Get(string(field))
	if err := c.UpdateField(string(field), value); err != nil {
		return nil, err
	}
	if c.State().Activity.Pending != bank.WriteNone {
		return nil, bank.ErrWriteInFlight
	}
	return scheduler.NewWriteJob(id, action, c, value), nil
}

// HandleState returns the rendered view and recent history as JSON.
func (h *BankHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	_, c := h.session(r)

	history := h.history(r, c)
	if history == nil {
		history = []bank.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StateResponse{View: c.View(), History: history})
}

// HandleUpdateField replaces one form input without submitting it.
func (h *BankHandler) HandleUpdateField(w http.ResponseWriter, r *http.Request) {
	_, c := h.session(r)

	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := c.UpdateField(r.PathValue("name"), req.Value); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.View())
}

func (h *BankHandler) history(r *http.Request, c *bank.Controller) []bank.JournalEntry {
	entries, err := c.History(r.Context(), historyLimit)
	if err != nil {
		if !errors.Is(err, bank.ErrNotConnected) {
			log.Printf("Error listing history: %v", err)
		}
		return nil
	}
	return entries
}

// writeError maps domain and queue errors to a status code.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrUnknownField), errors.Is(err, errInvalidForm):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bank.ErrWriteInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrPoolClosed):
		http.Error(w, "Server busy, try again", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
