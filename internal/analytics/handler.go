package analytics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/entry"
	"github.com/reimagine-business/donna/internal/transport"
	"github.com/reimagine-business/donna/pkg/logger"
)

// Handler serves the dashboard numbers. It loads the user's entry set and
// feeds it through the pure read-model functions; there is no cached or
// derived state to invalidate.
type Handler struct {
	*transport.BaseHandler
	repo entry.Repository
}

func NewHandler(repo entry.Repository) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		repo:        repo,
	}
}

func (h *Handler) CashBalance(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.loadEntries(w, r)
	if !ok {
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cash_balance": CashBalance(entries),
	})
}

func (h *Handler) Profit(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.loadEntries(w, r)
	if !ok {
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.WriteJSON(w, http.StatusOK, Profit(entries, window))
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.loadEntries(w, r)
	if !ok {
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	collections := PendingCollections(entries, window)
	bills := PendingBills(entries, window)
	advances := PendingAdvances(entries, window)

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"collections":       collections,
		"collections_total": PendingTotal(collections),
		"bills":             bills,
		"bills_total":       PendingTotal(bills),
		"advances":          advances,
		"advances_total":    PendingTotal(advances),
	})
}

func (h *Handler) loadEntries(w http.ResponseWriter, r *http.Request) ([]*entry.Entry, bool) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	entries, err := h.repo.ListByUser(userID)
	if err != nil {
		h.Logger.Error("failed to load entries for analytics", "error", err, "user_id", userID)
		h.WriteError(w, http.StatusInternalServerError, "failed to load entries")
		return nil, false
	}
	return entries, true
}

func windowFromQuery(r *http.Request) (Window, error) {
	var w Window
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return Window{}, err
		}
		w.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return Window{}, err
		}
		w.To = &t
	}
	return w, nil
}
