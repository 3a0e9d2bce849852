// Package sandbox is an in-process gateway. It keeps profiles and
// transactions in memory, follows the remote status lifecycle, and lets
// tests inject failures per operation.
package sandbox

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

// Operation names used for call counting and failure injection.
const (
	OpCreateProfile        = "CreateProfile"
	OpLookupProfile        = "LookupProfile"
	OpUpdateProfile        = "UpdateProfile"
	OpDeleteProfile        = "DeleteProfile"
	OpListProfileIDs       = "ListProfileIDs"
	OpAddPaymentProfile    = "AddPaymentProfile"
	OpGetPaymentProfile    = "GetPaymentProfile"
	OpDeletePaymentProfile = "DeletePaymentProfile"
	OpCharge               = "Charge"
	OpRefund               = "Refund"
	OpVoid                 = "Void"
	OpTransactionDetails   = "GetTransactionDetails"
)

const paymentProfileBase = 900000000

type profile struct {
	gateway.Profile
}

type transaction struct {
	id       string
	kind     ledger.Type
	status   ledger.RemoteStatus
	amount   int64
	refunded int64
	lastFour string
}

type Gateway struct {
	mu           sync.Mutex
	profiles     map[string]*profile
	transactions map[string]*transaction
	calls        map[string]int
	failures     map[string][]error

	nextProfile        int
	nextPaymentProfile int
	nextTransaction    int
}

var _ gateway.Client = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		profiles:     make(map[string]*profile),
		transactions: make(map[string]*transaction),
		calls:        make(map[string]int),
		failures:     make(map[string][]error),
	}
}

// FailNext queues err for the next call to op. Queued errors are consumed
// in order.
func (g *Gateway) FailNext(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = append(g.failures[op], err)
}

// Calls reports how many times op was invoked, failed calls included.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// TotalCalls counts every remote call made so far.
func (g *Gateway) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

// SetStatus forces the remote status of a transaction.
func (g *Gateway) SetStatus(transactionID string, status ledger.RemoteStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tx, ok := g.transactions[transactionID]; ok {
		tx.status = status
	}
}

// SettleAll moves every pending transaction to its settled status.
func (g *Gateway) SettleAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, tx := range g.transactions {
		switch tx.status {
		case ledger.StatusCapturedPendingSettlement:
			tx.status = ledger.StatusSettledSuccessfully
		case ledger.StatusRefundPendingSettlement:
			tx.status = ledger.StatusRefundSettledSuccessfully
		}
	}
}

// begin must be called with mu held.
func (g *Gateway) begin(op string) error {
	g.calls[op]++
	if q := g.failures[op]; len(q) > 0 {
		err := q[0]
		g.failures[op] = q[1:]
		return err
	}
	return nil
}

func (g *Gateway) CreateProfile(_ context.Context, details gateway.ProfileDetails) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpCreateProfile); err != nil {
		return "", err
	}

	for _, p := range g.profiles {
		if details.MerchantCustomerID != "" && p.MerchantCustomerID == details.MerchantCustomerID {
			return "", gateway.NewError(OpCreateProfile, gateway.CodeDuplicateRecord,
				fmt.Sprintf("A duplicate record with ID %s already exists.", p.ProfileID))
		}
	}

	g.nextProfile++
	id := fmt.Sprintf("PID-%d", g.nextProfile)
	g.profiles[id] = &profile{Profile: gateway.Profile{
		ProfileID:          id,
		MerchantCustomerID: details.MerchantCustomerID,
		Email:              details.Email,
		Description:        details.Description,
	}}
	return id, nil
}

func (g *Gateway) LookupProfile(_ context.Context, query gateway.ProfileQuery) (gateway.Lookup[gateway.Profile], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpLookupProfile); err != nil {
		return gateway.Missing[gateway.Profile](), err
	}

	if query.ProfileID != "" {
		if p, ok := g.profiles[query.ProfileID]; ok {
			return gateway.Found(p.copy()), nil
		}
		return gateway.Missing[gateway.Profile](), nil
	}
	for _, p := range g.profiles {
		if query.MerchantCustomerID != "" && p.MerchantCustomerID == query.MerchantCustomerID {
			return gateway.Found(p.copy()), nil
		}
		if query.Email != "" && p.Email == query.Email {
			return gateway.Found(p.copy()), nil
		}
	}
	return gateway.Missing[gateway.Profile](), nil
}

func (g *Gateway) UpdateProfile(_ context.Context, profileID string, details gateway.ProfileDetails) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpUpdateProfile); err != nil {
		return err
	}
	p, ok := g.profiles[profileID]
	if !ok {
		return gateway.NewError(OpUpdateProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	p.MerchantCustomerID = details.MerchantCustomerID
	p.Email = details.Email
	p.Description = details.Description
	return nil
}

func (g *Gateway) DeleteProfile(_ context.Context, profileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpDeleteProfile); err != nil {
		return err
	}
	if _, ok := g.profiles[profileID]; !ok {
		return gateway.NewError(OpDeleteProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	delete(g.profiles, profileID)
	return nil
}

func (g *Gateway) ListProfileIDs(context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpListProfileIDs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(g.profiles))
	for id := range g.profiles {
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *Gateway) AddPaymentProfile(_ context.Context, profileID string, in gateway.PaymentProfileInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpAddPaymentProfile); err != nil {
		return "", err
	}
	p, ok := g.profiles[profileID]
	if !ok {
		return "", gateway.NewError(OpAddPaymentProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	if in.Card.Number == "" || in.Card.Expiration == "" {
		return "", gateway.NewError(OpAddPaymentProfile, gateway.CodeInvalidPaymentData, "Invalid payment data.")
	}

	g.nextPaymentProfile++
	id := strconv.Itoa(paymentProfileBase + g.nextPaymentProfile)
	if in.Default {
		for i := range p.PaymentProfiles {
			p.PaymentProfiles[i].Default = false
		}
	}
	p.PaymentProfiles = append(p.PaymentProfiles, gateway.PaymentProfile{
		ID:      id,
		Default: in.Default,
		Card: &gateway.CardMask{
			Number:     customer.Mask(in.Card.Number),
			Expiration: "XXXX",
		},
	})
	return id, nil
}

func (g *Gateway) GetPaymentProfile(_ context.Context, profileID, paymentProfileID string) (*gateway.PaymentProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpGetPaymentProfile); err != nil {
		return nil, err
	}
	pp, ok := g.findPaymentProfile(profileID, paymentProfileID)
	if !ok {
		return nil, gateway.NewError(OpGetPaymentProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	out := *pp
	return &out, nil
}

func (g *Gateway) DeletePaymentProfile(_ context.Context, profileID, paymentProfileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpDeletePaymentProfile); err != nil {
		return err
	}
	p, ok := g.profiles[profileID]
	if !ok {
		return gateway.NewError(OpDeletePaymentProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	for i, pp := range p.PaymentProfiles {
		if pp.ID == paymentProfileID {
			p.PaymentProfiles = append(p.PaymentProfiles[:i], p.PaymentProfiles[i+1:]...)
			return nil
		}
	}
	return gateway.NewError(OpDeletePaymentProfile, gateway.CodeRecordNotFound, "The record cannot be found.")
}

func (g *Gateway) Charge(_ context.Context, req gateway.ChargeRequest) (*gateway.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpCharge); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, gateway.NewResponseError(OpCharge, gateway.ResponseInvalidCard, "5", "A valid amount is required.")
	}

	var lastFour string
	switch {
	case req.PaymentProfileID != "":
		pp, ok := g.findPaymentProfile(req.ProfileID, req.PaymentProfileID)
		if !ok {
			return nil, gateway.NewError(OpCharge, gateway.CodeRecordNotFound, "The record cannot be found.")
		}
		if pp.Card != nil {
			lastFour = customer.LastFour(pp.Card.Number)
		}
	case req.Card != nil:
		lastFour = customer.LastFour(req.Card.Number)
	case req.Track1 != "":
		card, err := gateway.SplitTrack1(req.Track1)
		if err != nil {
			return nil, err
		}
		lastFour = customer.LastFour(card.Number)
	default:
		return nil, gateway.ErrMissingPaymentMethod
	}

	tx := g.record(ledger.TypeCapture, ledger.StatusCapturedPendingSettlement, req.Amount, lastFour)
	return result(tx), nil
}

func (g *Gateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpRefund); err != nil {
		return nil, err
	}
	orig, ok := g.transactions[req.RefTransactionID]
	if !ok {
		return nil, gateway.NewResponseError(OpRefund, gateway.ResponseReferral, "16", "The transaction cannot be found.")
	}
	if orig.status != ledger.StatusSettledSuccessfully {
		return nil, gateway.NewResponseError(OpRefund, gateway.ResponseReferral, "54",
			"The referenced transaction does not meet the criteria for issuing a credit.")
	}
	if req.Amount <= 0 || orig.refunded+req.Amount > orig.amount {
		return nil, gateway.NewResponseError(OpRefund, gateway.ResponseReferral, "55",
			"The sum of credits against the referenced transaction would exceed original debit amount.")
	}

	orig.refunded += req.Amount
	tx := g.record(ledger.TypeRefund, ledger.StatusRefundPendingSettlement, req.Amount, orig.lastFour)
	return result(tx), nil
}

func (g *Gateway) Void(_ context.Context, transactionID string) (*gateway.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpVoid); err != nil {
		return nil, err
	}
	tx, ok := g.transactions[transactionID]
	if !ok {
		return nil, gateway.NewResponseError(OpVoid, gateway.ResponseReferral, "16", "The transaction cannot be found.")
	}
	if !slices.Contains(ledger.VoidableStatuses, tx.status) {
		return nil, gateway.NewResponseError(OpVoid, gateway.ResponseReferral, "16",
			"The transaction cannot be voided in its current state.")
	}
	tx.status = ledger.StatusVoided
	return &gateway.TransactionResult{
		Type:          ledger.TypeVoid,
		TransactionID: tx.id,
		LastFour:      tx.lastFour,
	}, nil
}

func (g *Gateway) GetTransactionDetails(_ context.Context, transactionID string) (*gateway.TransactionDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.begin(OpTransactionDetails); err != nil {
		return nil, err
	}
	tx, ok := g.transactions[transactionID]
	if !ok {
		return nil, gateway.NewError(OpTransactionDetails, gateway.CodeRecordNotFound, "The record cannot be found.")
	}
	settle := tx.amount
	if tx.status == ledger.StatusVoided {
		settle = 0
	}
	return &gateway.TransactionDetails{
		TransactionID: tx.id,
		Type:          tx.kind,
		Status:        tx.status,
		SettleAmount:  settle,
	}, nil
}

func (g *Gateway) record(kind ledger.Type, status ledger.RemoteStatus, amount int64, lastFour string) *transaction {
	g.nextTransaction++
	tx := &transaction{
		id:       strconv.Itoa(60000 + g.nextTransaction),
		kind:     kind,
		status:   status,
		amount:   amount,
		lastFour: lastFour,
	}
	g.transactions[tx.id] = tx
	return tx
}

func (g *Gateway) findPaymentProfile(profileID, paymentProfileID string) (*gateway.PaymentProfile, bool) {
	p, ok := g.profiles[profileID]
	if !ok {
		return nil, false
	}
	for i := range p.PaymentProfiles {
		if p.PaymentProfiles[i].ID == paymentProfileID {
			return &p.PaymentProfiles[i], true
		}
	}
	return nil, false
}

func (p *profile) copy() gateway.Profile {
	out := p.Profile
	out.PaymentProfiles = append([]gateway.PaymentProfile(nil), p.PaymentProfiles...)
	return out
}

func result(tx *transaction) *gateway.TransactionResult {
	return &gateway.TransactionResult{
		Type:          tx.kind,
		AuthCode:      "SBX" + tx.id,
		TransactionID: tx.id,
		Amount:        tx.amount,
		LastFour:      tx.lastFour,
	}
}

// Retryable is a ready-made transient failure for FailNext.
func Retryable(op string) error {
	return gateway.NewError(op, gateway.CodeServerBusy, "The server is currently too busy, please try again later.")
}

// Declined is a ready-made card decline for FailNext.
func Declined() error {
	return gateway.NewResponseError(OpCharge, gateway.ResponseDeclined, "2", "This transaction has been declined.")
}
