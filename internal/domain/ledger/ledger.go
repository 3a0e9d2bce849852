package ledger

import (
	"slices"
	"time"
)

// Type names the remote operation an entry records.
type Type string

const (
	TypeCapture          Type = "authCaptureTransaction"
	TypeRefund           Type = "refundTransaction"
	TypeVoid             Type = "voidTransaction"
	TypeAuthOnly         Type = "authOnlyTransaction"
	TypePriorAuthCapture Type = "priorAuthCaptureTransaction"
	TypeCaptureOnly      Type = "captureOnlyTransaction"
	TypeGetDetails       Type = "getDetailsTransaction"
	TypeAuthOnlyContinue Type = "authOnlyContinueTransaction"
)

// RemoteStatus is the gateway's settlement status for a transaction.
type RemoteStatus string

const (
	StatusAuthorizedPendingCapture   RemoteStatus = "authorizedPendingCapture"
	StatusCapturedPendingSettlement  RemoteStatus = "capturedPendingSettlement"
	StatusCommunicationError         RemoteStatus = "communicationError"
	StatusRefundSettledSuccessfully  RemoteStatus = "refundSettledSuccessfully"
	StatusRefundPendingSettlement    RemoteStatus = "refundPendingSettlement"
	StatusApprovedReview             RemoteStatus = "approvedReview"
	StatusDeclined                   RemoteStatus = "declined"
	StatusCouldNotVoid               RemoteStatus = "couldNotVoid"
	StatusExpired                    RemoteStatus = "expired"
	StatusGeneralError               RemoteStatus = "generalError"
	StatusFailedReview               RemoteStatus = "failedReview"
	StatusSettledSuccessfully        RemoteStatus = "settledSuccessfully"
	StatusSettlementError            RemoteStatus = "settlementError"
	StatusUnderReview                RemoteStatus = "underReview"
	StatusVoided                     RemoteStatus = "voided"
	StatusFDSPendingReview           RemoteStatus = "FDSPendingReview"
	StatusFDSAuthorizedPendingReview RemoteStatus = "FDSAuthorizedPendingReview"
	StatusReturnedItem               RemoteStatus = "returnedItem"
	StatusAuthorizedPendingRelease   RemoteStatus = "authorizedPendingRelease"
)

var (
	VoidableStatuses = []RemoteStatus{
		StatusAuthorizedPendingCapture,
		StatusCapturedPendingSettlement,
		StatusAuthorizedPendingRelease,
		StatusFDSPendingReview,
	}
	RefundableStatuses = []RemoteStatus{
		StatusSettledSuccessfully,
	}
)

// Entry records the outcome of one completed remote operation. Only
// RemoteStatus changes after creation, and only through reconciliation.
type Entry struct {
	ID                  string
	OrganizationID      int64
	TransactionID       string
	Type                Type
	RemoteAuthCode      string
	RemoteTransactionID string
	RemoteStatus        *RemoteStatus
	// Amount is signed: captures are positive, refunds negative.
	Amount           int64
	LastFour         string
	PaymentProfileID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (e *Entry) Voidable() bool {
	return e.RemoteStatus != nil && slices.Contains(VoidableStatuses, *e.RemoteStatus)
}

func (e *Entry) Refundable() bool {
	return e.RemoteStatus != nil && slices.Contains(RefundableStatuses, *e.RemoteStatus)
}

func (e *Entry) IsPayment() bool {
	return e.Type == TypeCapture
}

// NetCaptured sums captures minus refunds over entries.
func NetCaptured(entries []Entry) int64 {
	var net int64
	for _, e := range entries {
		switch e.Type {
		case TypeCapture, TypePriorAuthCapture, TypeCaptureOnly, TypeRefund:
			net += e.Amount
		}
	}
	return net
}
