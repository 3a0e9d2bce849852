// Package gateway is the boundary to the remote payment gateway. Every
// Client implementation classifies remote failures through Classify before
// returning them, so callers only ever see failure kinds.
package gateway

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
)

var (
	// ErrNoResponse means the gateway answered with nothing usable.
	ErrNoResponse = errors.New("gateway returned no response")
	// ErrUnknownOutcome means the call may or may not have been applied
	// remotely; only reconciliation can tell.
	ErrUnknownOutcome = errors.New("gateway call outcome unknown")
)

// Credentials authenticate one merchant. They travel with the client
// value, never through process state.
type Credentials struct {
	APILoginID     string
	TransactionKey string
}

type ProfileDetails struct {
	MerchantCustomerID string
	Email              string
	Description        string
}

// ProfileQuery looks a profile up by exactly one of its fields.
type ProfileQuery struct {
	ProfileID          string
	MerchantCustomerID string
	Email              string
}

type Profile struct {
	ProfileID          string
	MerchantCustomerID string
	Email              string
	Description        string
	PaymentProfiles    []PaymentProfile
}

type PaymentProfile struct {
	ID          string
	Default     bool
	Card        *CardMask
	BankAccount *BankAccountMask
}

type CardMask struct {
	Number     string
	Expiration string
	Type       string
}

type BankAccountMask struct {
	AccountNumber string
	RoutingNumber string
	AccountType   string
	BankName      string
	NameOnAccount string
	EcheckType    string
}

// Card holds raw card data on its way to the gateway. It is never stored.
type Card struct {
	Number     string
	Expiration string // MM/YY
	CVV        string
	FirstName  string
	LastName   string
}

type BillTo struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	Zip       string
	Country   string
}

type PaymentProfileInput struct {
	Card    Card
	BillTo  BillTo
	Default bool
}

// Lookup is the result of a search that may legitimately find nothing.
// A missing record is Found == false with a nil error; any other failure
// comes back as a classified error.
type Lookup[T any] struct {
	Value T
	Found bool
}

func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Found: true}
}

func Missing[T any]() Lookup[T] {
	return Lookup[T]{}
}

// ChargeRequest charges Amount cents against exactly one source: a stored
// payment profile, a card, or track 1 data.
type ChargeRequest struct {
	Amount           int64
	ProfileID        string
	PaymentProfileID string
	Card             *Card
	Track1           string
	InvoiceNumber    string
	Description      string
}

type RefundRequest struct {
	Amount           int64
	RefTransactionID string
	LastFour         string
}

type TransactionResult struct {
	Type          ledger.Type
	AuthCode      string
	TransactionID string
	Amount        int64
	LastFour      string
}

type TransactionDetails struct {
	TransactionID string
	Type          ledger.Type
	Status        ledger.RemoteStatus
	SettleAmount  int64
}

type Client interface {
	CreateProfile(ctx context.Context, details ProfileDetails) (string, error)
	LookupProfile(ctx context.Context, query ProfileQuery) (Lookup[Profile], error)
	UpdateProfile(ctx context.Context, profileID string, details ProfileDetails) error
	DeleteProfile(ctx context.Context, profileID string) error
	ListProfileIDs(ctx context.Context) ([]string, error)

	AddPaymentProfile(ctx context.Context, profileID string, in PaymentProfileInput) (string, error)
	GetPaymentProfile(ctx context.Context, profileID, paymentProfileID string) (*PaymentProfile, error)
	DeletePaymentProfile(ctx context.Context, profileID, paymentProfileID string) error

	Charge(ctx context.Context, req ChargeRequest) (*TransactionResult, error)
	Refund(ctx context.Context, req RefundRequest) (*TransactionResult, error)
	Void(ctx context.Context, transactionID string) (*TransactionResult, error)
	GetTransactionDetails(ctx context.Context, transactionID string) (*TransactionDetails, error)
}

// Provider hands out a client bound to one organization's credentials.
type Provider interface {
	ForOrganization(ctx context.Context, organizationID int64) (Client, error)
}

// StaticProvider builds clients from a fixed credential table.
type StaticProvider struct {
	Credentials map[int64]Credentials
	New         func(Credentials) Client
}

func (p *StaticProvider) ForOrganization(_ context.Context, organizationID int64) (Client, error) {
	creds, ok := p.Credentials[organizationID]
	if !ok {
		return nil, failure.Newf(failure.NotFound, "no gateway credentials for organization %d", organizationID)
	}
	return p.New(creds), nil
}

// SingleProvider returns the same client for every organization.
type SingleProvider struct {
	Client Client
}

func (p SingleProvider) ForOrganization(context.Context, int64) (Client, error) {
	return p.Client, nil
}
