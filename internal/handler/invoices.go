package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/service"
)

// InvoiceServicer defines the service methods needed by invoice handlers.
// Satisfied by *service.InvoiceService; narrow interface for testability.
type InvoiceServicer interface {
	GenerateInvoices(ctx context.Context, periodStart, periodEnd time.Time) ([]database.Invoice, error)
	GenerateBusinessInvoices(ctx context.Context, businessID uuid.UUID, periodStart, periodEnd *time.Time) ([]database.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*service.InvoiceDetail, error)
	ListBusinessInvoices(ctx context.Context, businessID uuid.UUID) ([]database.Invoice, error)
	IssueInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	MarkAsPaid(ctx context.Context, id uuid.UUID) (database.Invoice, error)
}

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	svc InvoiceServicer
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc InvoiceServicer) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// RegisterRoutes registers platform-wide invoice endpoints on the given Chi
// router. Expected to be mounted at /invoices.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.Generate)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/issue", h.Issue)
	r.Post("/{id}/pay", h.Pay)
}

// RegisterBusinessRoutes registers business-scoped invoice endpoints.
// Expected to be mounted inside /businesses/{bid}/invoices.
func (h *InvoiceHandler) RegisterBusinessRoutes(r chi.Router) {
	r.Post("/generate", h.GenerateForBusiness)
	r.Get("/", h.ListByBusiness)
}

// --- Request / Response types ---

type generateInvoicesRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

type invoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	BusinessID    uuid.UUID `json:"business_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Status        string    `json:"status"`
	PeriodStart   string    `json:"period_start"`
	PeriodEnd     string    `json:"period_end"`
	Subtotal      string    `json:"subtotal"`
	Tax           string    `json:"tax"`
	Total         string    `json:"total"`
	DueDate       string    `json:"due_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type invoiceItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Description string    `json:"description"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	TotalPrice  string    `json:"total_price"`
}

// invoiceDetailResponse extends invoiceResponse with line items for the GET
// detail endpoint.
type invoiceDetailResponse struct {
	invoiceResponse
	Items []invoiceItemResponse `json:"items"`
}

// --- Handlers ---

// Generate handles POST /invoices/generate. Both period bounds are required;
// the platform-wide run covers every business with invoiceable orders.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PeriodStart == "" || req.PeriodEnd == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "period_start and period_end are required"})
		return
	}

	periodStart, err := service.ParseDate(req.PeriodStart)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid period_start format, use YYYY-MM-DD"})
		return
	}

	periodEnd, err := service.ParseDate(req.PeriodEnd)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid period_end format, use YYYY-MM-DD"})
		return
	}

	invoices, err := h.svc.GenerateInvoices(r.Context(), periodStart, periodEnd)
	if err != nil {
		h.writeInvoiceError(w, "generate invoices", err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvoiceResponses(invoices))
}

// GenerateForBusiness handles POST /businesses/{bid}/invoices/generate.
// Omitted period bounds default to the previous calendar month.
func (h *InvoiceHandler) GenerateForBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseBusinessID(w, r)
	if !ok {
		return
	}

	var req generateInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var periodStart, periodEnd *time.Time
	if req.PeriodStart != "" {
		t, err := service.ParseDate(req.PeriodStart)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid period_start format, use YYYY-MM-DD"})
			return
		}
		periodStart = &t
	}
	if req.PeriodEnd != "" {
		t, err := service.ParseDate(req.PeriodEnd)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid period_end format, use YYYY-MM-DD"})
			return
		}
		periodEnd = &t
	}

	invoices, err := h.svc.GenerateBusinessInvoices(r.Context(), businessID, periodStart, periodEnd)
	if err != nil {
		h.writeInvoiceError(w, "generate business invoices", err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvoiceResponses(invoices))
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := parseInvoiceID(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		h.writeInvoiceError(w, "get invoice", err)
		return
	}

	resp := invoiceDetailResponse{
		invoiceResponse: toInvoiceResponse(detail.Invoice),
		Items:           make([]invoiceItemResponse, len(detail.Items)),
	}
	for i, item := range detail.Items {
		resp.Items[i] = invoiceItemResponse{
			ID:          item.ID,
			OrderID:     item.OrderID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   numericToString(item.UnitPrice),
			TotalPrice:  numericToString(item.TotalPrice),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListByBusiness handles GET /businesses/{bid}/invoices.
func (h *InvoiceHandler) ListByBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseBusinessID(w, r)
	if !ok {
		return
	}

	invoices, err := h.svc.ListBusinessInvoices(r.Context(), businessID)
	if err != nil {
		log.Printf("ERROR: list business invoices: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponses(invoices))
}

// Issue handles POST /invoices/{id}/issue.
func (h *InvoiceHandler) Issue(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := parseInvoiceID(w, r)
	if !ok {
		return
	}

	invoice, err := h.svc.IssueInvoice(r.Context(), invoiceID)
	if err != nil {
		h.writeInvoiceError(w, "issue invoice", err)
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// Pay handles POST /invoices/{id}/pay.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := parseInvoiceID(w, r)
	if !ok {
		return
	}

	invoice, err := h.svc.MarkAsPaid(r.Context(), invoiceID)
	if err != nil {
		h.writeInvoiceError(w, "mark invoice paid", err)
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// --- Helpers ---

func parseInvoiceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	invoiceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid invoice ID"})
		return uuid.Nil, false
	}
	return invoiceID, true
}

func (h *InvoiceHandler) writeInvoiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPeriod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvoiceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateInvoice),
		errors.Is(err, service.ErrInvoiceTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toInvoiceResponse(inv database.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		BusinessID:    inv.BusinessID,
		ServiceID:     inv.ServiceID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		PeriodStart:   service.DateOf(inv.PeriodStart).Format(time.DateOnly),
		PeriodEnd:     service.DateOf(inv.PeriodEnd).Format(time.DateOnly),
		Subtotal:      numericToString(inv.Subtotal),
		Tax:           numericToString(inv.Tax),
		Total:         numericToString(inv.Total),
		DueDate:       service.DateOf(inv.DueDate).Format(time.DateOnly),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func toInvoiceResponses(invoices []database.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = toInvoiceResponse(inv)
	}
	return out
}
