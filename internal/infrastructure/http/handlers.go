package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/checkout"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/paymentmethod"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/money"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

// Orders is the transaction side of the API.
type Orders interface {
	checkout.Chargeable
	checkout.Reversible
	Open(ctx context.Context, t *transaction.Transaction) error
	Get(ctx context.Context, transactionID string) (*transaction.Transaction, error)
	LedgerEntries(ctx context.Context, transactionID string) ([]ledger.Entry, error)
}

type PaymentMethods interface {
	Add(ctx context.Context, c *customer.Customer, card gateway.Card, billTo gateway.BillTo) (*customer.PaymentMethod, error)
	List(ctx context.Context, customerID int64) (paymentmethod.Listing, error)
	Delete(ctx context.Context, c *customer.Customer, id string) error
	SetPrimary(ctx context.Context, c *customer.Customer, id string) error
}

type Profiles interface {
	SyncProfile(ctx context.Context, c *customer.Customer) error
	DeleteProfile(ctx context.Context, c *customer.Customer) error
}

type Handler struct {
	Orders     Orders
	Customers  customer.Repository
	Methods    PaymentMethods
	Profiles   Profiles
	Reconciler worker.EntryReconciler
	Logger     logging.Logger

	validate *validator.Validate
}

func NewHandler(h Handler) *Handler {
	h.validate = validator.New()
	return &h
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionReq
	if !h.decode(w, r, &req) {
		return
	}

	t := &transaction.Transaction{
		ID:         req.ID,
		CustomerID: req.CustomerID,
		SiteID:     req.SiteID,
	}

	var err error
	if t.Discount, err = optionalCents(req.Discount); err != nil {
		h.writeError(w, r, err)
		return
	}
	if t.Tax, err = optionalCents(req.Tax); err != nil {
		h.writeError(w, r, err)
		return
	}

	for _, it := range req.Items {
		price, err := cents(it.UnitPrice)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		t.Items = append(t.Items, transaction.Item{
			SKU:            it.SKU,
			Description:    it.Description,
			UnitPrice:      price,
			Quantity:       it.Quantity,
			CreditEligible: it.CreditEligible,
		})
	}

	if err := h.Orders.Open(r.Context(), t); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResp(t))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResp(t))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if !h.decode(w, r, &req) {
		return
	}

	opts := checkout.Options{
		Note: req.Note,
		Payment: gateway.PaymentData{
			PaymentProfileID: req.PaymentProfileID,
			Track:            req.Track,
		},
		StorePaymentMethod: req.StorePaymentMethod,
		SkipFulfillment:    req.SkipFulfillment,
		BypassGuards:       req.BypassGuards,
	}
	if req.Card != nil {
		card := toCard(*req.Card)
		opts.Payment.Card = &card
	}

	t, err := h.Orders.Checkout(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResp(t))
}

func (h *Handler) ReturnItems(w http.ResponseWriter, r *http.Request) {
	var req ReturnReq
	if !h.decode(w, r, &req) {
		return
	}

	lines := make([]transaction.ReturnLine, 0, len(req.Items))
	for _, l := range req.Items {
		lines = append(lines, transaction.ReturnLine{
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Restock:  l.Restock,
			Force:    l.Force,
		})
	}

	t, err := h.Orders.ReturnItems(r.Context(), chi.URLParam(r, "id"), lines, req.AsStoreCredit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResp(t))
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	t, err := h.Orders.Void(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResp(t))
}

func (h *Handler) Comp(w http.ResponseWriter, r *http.Request) {
	var req CompReq
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.Orders.Comp(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResp(t))
}

func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Orders.LedgerEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]LedgerEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryResp(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ReconcileEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Reconciler.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerEntryResp(*entry))
}

func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	listing, err := h.Methods.List(r.Context(), c.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentMethodListResp{
		CreditCards:  toPaymentMethodResps(listing.CreditCards),
		BankAccounts: toPaymentMethodResps(listing.BankAccounts),
	})
}

func (h *Handler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req AddPaymentMethodReq
	if !h.decode(w, r, &req) {
		return
	}
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	billTo := gateway.BillTo{
		FirstName: req.BillTo.FirstName,
		LastName:  req.BillTo.LastName,
		Address:   req.BillTo.Address,
		City:      req.BillTo.City,
		State:     req.BillTo.State,
		Zip:       req.BillTo.Zip,
		Country:   req.BillTo.Country,
	}

	pm, err := h.Methods.Add(r.Context(), c, toCard(req.Card), billTo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentMethodResps([]customer.PaymentMethod{*pm})[0])
}

func (h *Handler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	if err := h.Methods.Delete(r.Context(), c, chi.URLParam(r, "methodID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPrimaryPaymentMethod(w http.ResponseWriter, r *http.Request) {
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	if err := h.Methods.SetPrimary(r.Context(), c, chi.URLParam(r, "methodID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResp(c))
}

func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	if err := h.Profiles.SyncProfile(r.Context(), c); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResp(c))
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := h.customer(w, r)
	if !ok {
		return
	}

	if err := h.Profiles.DeleteProfile(r.Context(), c); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads and validates a JSON body. It writes the error response
// itself and reports whether the handler should go on.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, failure.Wrap(failure.BadInput, "invalid request", err))
		return false
	}
	return true
}

func (h *Handler) customer(w http.ResponseWriter, r *http.Request) (*customer.Customer, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid customer id")
		return nil, false
	}

	c, err := h.Customers.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) logger() logging.Logger {
	if h.Logger == nil {
		return logging.Nop{}
	}
	return h.Logger
}

func toCard(c CardReq) gateway.Card {
	return gateway.Card{
		Number:     c.Number,
		Expiration: c.Expiration,
		CVV:        c.CVV,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
	}
}

func cents(value string) (int64, error) {
	n, err := money.ParseCents(value)
	if err != nil {
		return 0, failure.Wrap(failure.BadInput, "invalid amount", err)
	}
	return n, nil
}

func optionalCents(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return cents(value)
}
