package documents

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/platform/httpx"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// NumberPeeker previews the next document number of a namespace.
type NumberPeeker interface {
	Peek(ctx context.Context, ns sequence.Namespace) (string, error)
}

// Handler exposes the document endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	peeker   NumberPeeker
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, peeker NumberPeeker) *Handler {
	return &Handler{logger: logger, service: service, peeker: peeker, validate: validator.New()}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/documents", h.create)
	r.Get("/documents/{number}", h.get)
	r.Put("/documents/{number}", h.edit)
	r.Delete("/documents/{number}", h.remove)
	r.Get("/documents", h.list)
	r.Get("/documents/next-number/{kind}", h.peekNumber)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("body", "malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.RespondError(w, shared.Validation("date", "date must be RFC3339 or YYYY-MM-DD"))
		return
	}
	in := CreateInput{
		Kind:            Kind(req.Kind),
		Number:          req.Number,
		PartyKind:       ledger.Kind(req.PartyKind),
		PartyID:         req.PartyID,
		PartyName:       req.PartyName,
		SellerID:        req.SellerID,
		SellerName:      req.SellerName,
		SellerAmount:    req.SellerAmount,
		TransportID:     req.TransportID,
		TransportName:   req.TransportName,
		TransportAmount: req.TransportAmount,
		Date:            date,
		SubmittedBy:     req.SubmittedBy,
		Remark:          req.Remark,
		Lines:           linesFromRequest(req.Lines),
	}
	if req.Payment != nil {
		in.Payment = &PaymentInput{Amount: req.Payment.Amount, Method: req.Payment.Method, Remark: req.Payment.Remark}
	}
	doc, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewDocumentResponse(doc))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, r, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDocumentResponse(doc))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	var req EditDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("body", "malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.RespondError(w, shared.Validation("date", "date must be RFC3339 or YYYY-MM-DD"))
		return
	}
	doc, err := h.service.Edit(r.Context(), number, EditInput{
		PartyID:         req.PartyID,
		PartyName:       req.PartyName,
		SellerID:        req.SellerID,
		SellerName:      req.SellerName,
		SellerAmount:    req.SellerAmount,
		TransportID:     req.TransportID,
		TransportName:   req.TransportName,
		TransportAmount: req.TransportAmount,
		Date:            date,
		SubmittedBy:     req.SubmittedBy,
		Remark:          req.Remark,
		Lines:           linesFromRequest(req.Lines),
	})
	if err != nil {
		h.fail(w, r, "edit document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDocumentResponse(doc))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if err := h.service.Delete(r.Context(), number, r.URL.Query().Get("actor")); err != nil {
		h.fail(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind := Kind(strings.ToUpper(r.URL.Query().Get("kind")))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	docs, err := h.service.List(r.Context(), kind, limit, offset)
	if err != nil {
		h.fail(w, r, "list documents", err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, NewDocumentResponse(&docs[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// peekNumber previews the next number a kind would issue. Advisory:
// the create claims its number inside the batch.
func (h *Handler) peekNumber(w http.ResponseWriter, r *http.Request) {
	kind := Kind(strings.ToUpper(chi.URLParam(r, "kind")))
	if !kind.Valid() {
		httpx.RespondError(w, shared.Validation("kind", "unknown document kind"))
		return
	}
	number, err := h.peeker.Peek(r.Context(), kind.Namespace())
	if err != nil {
		h.fail(w, r, "peek number", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"number": number})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return shared.Validation(fieldErrs[0].Field(), "invalid value")
	}
	return shared.Validation("body", "validation failed")
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
