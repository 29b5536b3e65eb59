package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/valitor-commerce/api/internal/platform/httpx"
	"github.com/valitor-commerce/api/internal/services"
)

const defaultStoreCode = "default"

// TerminalService lists gateway terminals as select options for a store.
type TerminalService interface {
	Options(ctx context.Context, storeCode string) []services.TerminalOption
}

// ConfigHandlers exposes store-configuration endpoints.
type ConfigHandlers struct {
	terminals TerminalService
}

// NewConfigHandlers constructs a ConfigHandlers instance.
func NewConfigHandlers(terminals TerminalService) *ConfigHandlers {
	return &ConfigHandlers{terminals: terminals}
}

// Routes registers the /config endpoints.
func (h *ConfigHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/terminals", h.listTerminals)
}

type terminalListResponse struct {
	Options []services.TerminalOption `json:"options"`
}

func (h *ConfigHandlers) listTerminals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.terminals == nil {
		httpx.WriteError(ctx, w, httpx.NewError("terminal_service_unavailable", "terminal service unavailable", http.StatusServiceUnavailable))
		return
	}

	store := strings.TrimSpace(r.URL.Query().Get("store"))
	if store == "" {
		store = defaultStoreCode
	}

	writeJSON(w, http.StatusOK, terminalListResponse{Options: h.terminals.Options(ctx, store)})
}
