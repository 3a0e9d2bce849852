package httpapi

import (
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/money"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
)

// Amounts cross the API as decimal strings ("10.50").

type CreateTransactionReq struct {
	ID         string    `json:"id"`
	CustomerID int64     `json:"customerId" validate:"required,gt=0"`
	SiteID     int64     `json:"siteId" validate:"gte=0"`
	Discount   string    `json:"discount" validate:"omitempty,numeric"`
	Tax        string    `json:"tax" validate:"omitempty,numeric"`
	Items      []ItemReq `json:"items" validate:"required,min=1,dive"`
}

type ItemReq struct {
	SKU            string `json:"sku" validate:"required"`
	Description    string `json:"description"`
	UnitPrice      string `json:"unitPrice" validate:"required,numeric"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	CreditEligible bool   `json:"creditEligible"`
}

type CardReq struct {
	Number     string `json:"number" validate:"required,number,min=12,max=19"`
	Expiration string `json:"expiration" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"omitempty,number,min=3,max=4"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

type CheckoutReq struct {
	Note               string   `json:"note" validate:"max=500"`
	PaymentProfileID   string   `json:"paymentProfileId" validate:"omitempty,number"`
	Card               *CardReq `json:"card" validate:"omitempty"`
	Track              string   `json:"track"`
	StorePaymentMethod bool     `json:"storePaymentMethod"`
	SkipFulfillment    bool     `json:"skipFulfillment"`
	BypassGuards       bool     `json:"bypassGuards"`
}

type ReturnLineReq struct {
	ItemID   int64 `json:"itemId" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
	Restock  bool  `json:"restock"`
	Force    bool  `json:"force"`
}

type ReturnReq struct {
	Items         []ReturnLineReq `json:"items" validate:"required,min=1,dive"`
	AsStoreCredit bool            `json:"asStoreCredit"`
}

type CompReq struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type BillToReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country" validate:"omitempty,len=2"`
}

type AddPaymentMethodReq struct {
	Card   CardReq   `json:"card" validate:"required"`
	BillTo BillToReq `json:"billTo"`
}

type ItemResp struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Description       string `json:"description,omitempty"`
	UnitPrice         string `json:"unitPrice"`
	Quantity          int    `json:"quantity"`
	FulfilledQuantity int    `json:"fulfilledQuantity"`
	ReturnedQuantity  int    `json:"returnedQuantity"`
	CreditEligible    bool   `json:"creditEligible"`
}

type TransactionResp struct {
	ID                 string     `json:"id"`
	OrganizationID     int64      `json:"organizationId"`
	CustomerID         int64      `json:"customerId"`
	SiteID             int64      `json:"siteId"`
	Status             string     `json:"status"`
	Note               string     `json:"note,omitempty"`
	Subtotal           string     `json:"subtotal"`
	Discount           string     `json:"discount"`
	Tax                string     `json:"tax"`
	Total              string     `json:"total"`
	AmountDue          string     `json:"amountDue"`
	PaymentApplied     string     `json:"paymentApplied"`
	RefundTotal        string     `json:"refundTotal"`
	StoreCreditApplied string     `json:"storeCreditApplied"`
	ChargeAttempts     int        `json:"chargeAttempts"`
	ChargeFailureLog   []string   `json:"chargeFailureLog,omitempty"`
	CompReason         string     `json:"compReason,omitempty"`
	Items              []ItemResp `json:"items"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type LedgerEntryResp struct {
	ID                  string    `json:"id"`
	TransactionID       string    `json:"transactionId"`
	Type                string    `json:"type"`
	RemoteAuthCode      string    `json:"remoteAuthCode,omitempty"`
	RemoteTransactionID string    `json:"remoteTransactionId,omitempty"`
	RemoteStatus        *string   `json:"remoteStatus"`
	Amount              string    `json:"amount"`
	LastFour            string    `json:"lastFour,omitempty"`
	PaymentProfileID    *string   `json:"paymentProfileId,omitempty"`
	Voidable            bool      `json:"voidable"`
	Refundable          bool      `json:"refundable"`
	CreatedAt           time.Time `json:"createdAt"`
}

type PaymentMethodResp struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	MaskedNumber string    `json:"maskedNumber"`
	Brand        string    `json:"brand,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsPrimary    bool      `json:"isPrimary"`
}

type PaymentMethodListResp struct {
	CreditCards  []PaymentMethodResp `json:"creditCards"`
	BankAccounts []PaymentMethodResp `json:"bankAccounts"`
}

type ProfileResp struct {
	CustomerID             int64   `json:"customerId"`
	RemoteProfileID        *string `json:"remoteProfileId"`
	RemoteMerchantKey      *string `json:"remoteMerchantKey"`
	PrimaryPaymentMethodID *string `json:"primaryPaymentMethodId"`
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

func toTransactionResp(t *transaction.Transaction) TransactionResp {
	out := TransactionResp{
		ID:                 t.ID,
		OrganizationID:     t.OrganizationID,
		CustomerID:         t.CustomerID,
		SiteID:             t.SiteID,
		Status:             string(t.Status),
		Note:               t.Note,
		Subtotal:           money.FormatCents(t.Subtotal),
		Discount:           money.FormatCents(t.Discount),
		Tax:                money.FormatCents(t.Tax),
		Total:              money.FormatCents(t.Total),
		AmountDue:          money.FormatCents(t.AmountDue),
		PaymentApplied:     money.FormatCents(t.PaymentApplied),
		RefundTotal:        money.FormatCents(t.RefundTotal),
		StoreCreditApplied: money.FormatCents(t.StoreCreditApplied),
		ChargeAttempts:     t.ChargeAttempts,
		ChargeFailureLog:   t.ChargeFailureLog,
		CompReason:         t.CompReason,
		Items:              make([]ItemResp, 0, len(t.Items)),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	for _, it := range t.Items {
		out.Items = append(out.Items, ItemResp{
			ID:                it.ID,
			SKU:               it.SKU,
			Description:       it.Description,
			UnitPrice:         money.FormatCents(it.UnitPrice),
			Quantity:          it.Quantity,
			FulfilledQuantity: it.FulfilledQuantity,
			ReturnedQuantity:  it.ReturnedQuantity,
			CreditEligible:    it.CreditEligible,
		})
	}
	return out
}

func toLedgerEntryResp(e ledger.Entry) LedgerEntryResp {
	out := LedgerEntryResp{
		ID:                  e.ID,
		TransactionID:       e.TransactionID,
		Type:                string(e.Type),
		RemoteAuthCode:      e.RemoteAuthCode,
		RemoteTransactionID: e.RemoteTransactionID,
		Amount:              money.FormatCents(e.Amount),
		LastFour:            e.LastFour,
		PaymentProfileID:    e.PaymentProfileID,
		Voidable:            e.Voidable(),
		Refundable:          e.Refundable(),
		CreatedAt:           e.CreatedAt,
	}
	if e.RemoteStatus != nil {
		s := string(*e.RemoteStatus)
		out.RemoteStatus = &s
	}
	return out
}

func toPaymentMethodResps(methods []customer.PaymentMethod) []PaymentMethodResp {
	out := make([]PaymentMethodResp, 0, len(methods))
	for _, m := range methods {
		out = append(out, PaymentMethodResp{
			ID:           m.ID,
			Kind:         string(m.Kind),
			MaskedNumber: m.MaskedNumber,
			Brand:        m.Brand,
			ExpiresAt:    m.ExpiresAt,
			IsPrimary:    m.IsPrimary,
		})
	}
	return out
}

func toProfileResp(c *customer.Customer) ProfileResp {
	return ProfileResp{
		CustomerID:             c.ID,
		RemoteProfileID:        c.RemoteProfileID,
		RemoteMerchantKey:      c.RemoteMerchantKey,
		PrimaryPaymentMethodID: c.PrimaryPaymentMethodID,
	}
}
