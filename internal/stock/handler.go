package stock

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewell-erp/tradewell/internal/platform/httpx"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// Handler exposes stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/opening", h.setOpening)
	r.Get("/history", h.history)
	r.Get("/items/{itemId}", h.getProduct)
}

type openingRequest struct {
	ItemID      string  `json:"itemId" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	SubmittedBy string  `json:"submittedBy" validate:"required"`
	Remark      string  `json:"remark"`
}

func (h *Handler) setOpening(w http.ResponseWriter, r *http.Request) {
	var req openingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("body", "malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validation("body", "validation failed"))
		return
	}
	entry, err := h.service.SetOpening(r.Context(), OpeningInput{
		ItemID: req.ItemID, Name: req.Name, Brand: req.Brand, Category: req.Category,
		Quantity: req.Quantity, SubmittedBy: req.SubmittedBy, Remark: req.Remark,
	})
	if err != nil {
		h.fail(w, "set opening", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entryDTO(HistoryEntry{LedgerEntry: entry, Name: req.Name, Brand: req.Brand, Category: req.Category}))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := HistoryFilter{ItemID: q.Get("itemId")}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, shared.Validation("from", "date must be YYYY-MM-DD"))
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, shared.Validation("to", "date must be YYYY-MM-DD"))
			return
		}
		filter.To = t
	}
	if v := q.Get("cursor"); v != "" {
		cursor, err := decodeCursor(v)
		if err != nil {
			httpx.RespondError(w, shared.Validation("cursor", "malformed cursor"))
			return
		}
		filter.After = cursor
	}
	entries, next, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.fail(w, "stock history", err)
		return
	}
	out := struct {
		Entries []map[string]any `json:"entries"`
		Cursor  string           `json:"cursor,omitempty"`
	}{Entries: make([]map[string]any, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, entryDTO(e))
	}
	if next != nil {
		out.Cursor = encodeCursor(next)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	prod, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item_id": prod.ItemID, "name": prod.Name, "brand": prod.Brand,
		"category": prod.Category, "quantity": prod.Quantity,
	})
}

func entryDTO(e HistoryEntry) map[string]any {
	return map[string]any{
		"item_id":     e.ItemID,
		"name":        e.Name,
		"quantity":    e.Quantity,
		"sourceType":  e.Source,
		"invoiceNo":   e.DocNumber,
		"submittedBy": e.SubmittedBy,
		"remark":      e.Remark,
		"date":        e.Date,
		"snapshot":    e.Snapshot,
	}
}

func encodeCursor(c *Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(value string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
