package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewell-erp/tradewell/internal/platform/httpx"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// Handler exposes the account and payment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{kind}", h.listAccounts)
	r.Get("/accounts/{kind}/{owner}", h.statement)
	r.Post("/payments", h.recordPayment)
	r.Patch("/payments/{ref}", h.editPayment)
	r.Delete("/payments/{ref}", h.deletePayment)
	r.Post("/transfers", h.transfer)
	r.Get("/references/{ref}", h.resolveReference)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	kind := Kind(strings.ToUpper(chi.URLParam(r, "kind")))
	owner := chi.URLParam(r, "owner")
	acc, err := h.service.Statement(r.Context(), kind, owner)
	if err != nil {
		h.fail(w, r, "statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewStatementResponse(acc))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	kind := Kind(strings.ToUpper(chi.URLParam(r, "kind")))
	accounts, err := h.service.ListAccounts(r.Context(), kind)
	if err != nil {
		h.fail(w, r, "list accounts", err)
		return
	}
	out := make([]StatementResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewStatementResponse(&accounts[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
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
	ref, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		PartyKind: Kind(req.PartyKind), PartyID: req.PartyID, PartyName: req.PartyName,
		Amount: req.Amount, Date: date, Method: req.Method,
		SubmittedBy: req.SubmittedBy, Remark: req.Remark, DocNumber: req.DocNumber,
	})
	if err != nil {
		h.fail(w, r, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"referenceId": ref})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
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
	outRef, inRef, err := h.service.Transfer(r.Context(), TransferInput{
		FromAccount: req.FromAccount, ToAccount: req.ToAccount,
		Amount: req.Amount, Date: date, SubmittedBy: req.SubmittedBy, Remark: req.Remark,
	})
	if err != nil {
		h.fail(w, r, "transfer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"outReferenceId": outRef, "inReferenceId": inRef})
}

func (h *Handler) editPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	var req EditPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("body", "malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	upd := PaymentUpdate{Amount: req.Amount, Method: req.Method, Remark: req.Remark}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			httpx.RespondError(w, shared.Validation("date", "date must be RFC3339 or YYYY-MM-DD"))
			return
		}
		upd.Date = &date
	}
	if err := h.service.EditPayment(r.Context(), ref, upd); err != nil {
		h.fail(w, r, "edit payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"referenceId": ref})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if err := h.service.DeletePayment(r.Context(), ref); err != nil {
		h.fail(w, r, "delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveReference(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	copies, err := h.service.Resolve(r.Context(), ref)
	if err != nil {
		h.fail(w, r, "resolve reference", err)
		return
	}
	type copyDTO struct {
		Kind    string         `json:"kind"`
		OwnerID string         `json:"ownerId"`
		Line    PaymentLineDTO `json:"line"`
	}
	out := make([]copyDTO, 0, len(copies))
	for _, c := range copies {
		out = append(out, copyDTO{
			Kind: string(c.Kind), OwnerID: c.OwnerID,
			Line: PaymentLineDTO{
				Amount: c.Line.Amount, Date: c.Line.Date, Method: c.Line.Method,
				SubmittedBy: c.Line.SubmittedBy, Remark: c.Line.Remark,
				ReferenceID: c.Line.ReferenceID, DocNumber: c.Line.DocNumber,
				Direction: string(c.Line.Direction),
			},
		})
	}
	httpx.JSON(w, http.StatusOK, out)
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

// parseDate accepts RFC3339 timestamps or plain dates; empty means now.
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
