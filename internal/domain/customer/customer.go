package customer

import (
	"strconv"
	"time"
)

// Customer is the local record a billing profile is resolved for.
// RemoteProfileID is assigned once by the gateway and only cleared by an
// explicit profile deletion.
type Customer struct {
	ID                     int64
	OrganizationID         int64
	Email                  string
	FirstName              string
	LastName               string
	RemoteProfileID        *string
	RemoteMerchantKey      *string
	PrimaryPaymentMethodID *string
}

// LocalKey is the merchant key the gateway should hold for this customer.
func (c *Customer) LocalKey() string {
	return strconv.FormatInt(c.ID, 10)
}

func (c *Customer) HasRemoteProfile() bool {
	return c.RemoteProfileID != nil && *c.RemoteProfileID != ""
}

type MethodKind string

const (
	MethodCreditCard  MethodKind = "credit_card"
	MethodBankAccount MethodKind = "bank_account"
)

// PaymentMethod is a tokenized card or bank account. ID is the gateway's
// payment profile id, never generated locally.
type PaymentMethod struct {
	ID             string
	OrganizationID int64
	CustomerID     int64
	Kind           MethodKind
	MaskedNumber   string
	Brand          string
	ExpiresAt      time.Time
	IsPrimary      bool
	CreatedAt      time.Time
}

// Mask keeps the last four digits only.
func Mask(number string) string {
	if len(number) <= 4 {
		return "XXXX" + number
	}
	return "XXXX" + number[len(number)-4:]
}

// LastFour strips a masked or full number down to its last four digits.
func LastFour(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
