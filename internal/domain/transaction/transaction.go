package transaction

import "time"

type Status string

const (
	StatusNew               Status = "new"
	StatusPending           Status = "pending"
	StatusFulfilled         Status = "fulfilled"
	StatusFailed            Status = "failed"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusVoid              Status = "void"
)

// CanCheckout reports whether checkout may be (re)started from s.
func (s Status) CanCheckout() bool {
	return s == StatusNew || s == StatusFailed
}

// CanReturn reports whether items may be returned from s.
func (s Status) CanReturn() bool {
	return s == StatusFulfilled || s == StatusPartiallyRefunded
}

// Transaction is the order aggregate. All amounts are in cents.
type Transaction struct {
	ID                 string
	OrganizationID     int64
	CustomerID         int64
	SiteID             int64
	Status             Status
	Note               string
	Subtotal           int64
	Discount           int64
	Tax                int64
	Total              int64
	AmountDue          int64
	PaymentApplied     int64
	RefundTotal        int64
	StoreCreditApplied int64
	ChargeAttempts     int
	ChargeFailureLog   []string
	CompReason         string
	Items              []Item
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (t *Transaction) IsComped() bool {
	return t.CompReason != ""
}

// RefundableAmount is what was received and not yet paid back, across
// gateway refunds and store credit.
func (t *Transaction) RefundableAmount() int64 {
	return max(t.PaymentApplied-t.RefundTotal, 0)
}

// StoreCreditApplicableAmount is the part of the amount due that store
// credit may pay for.
func (t *Transaction) StoreCreditApplicableAmount() int64 {
	var eligible int64
	for _, it := range t.Items {
		if it.CreditEligible {
			eligible += it.LineTotal()
		}
	}
	return min(eligible, t.AmountDue)
}

func (t *Transaction) Item(id int64) (*Item, bool) {
	for i := range t.Items {
		if t.Items[i].ID == id {
			return &t.Items[i], true
		}
	}
	return nil, false
}

// Item is one line of a transaction.
type Item struct {
	ID                int64
	TransactionID     string
	SKU               string
	Description       string
	UnitPrice         int64
	Quantity          int
	FulfilledQuantity int
	ReturnedQuantity  int
	CreditEligible    bool
}

func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

func (i Item) ReturnableQuantity() int {
	return i.FulfilledQuantity - i.ReturnedQuantity
}

// ReturnLine asks for quantity units of an item to be returned.
type ReturnLine struct {
	ItemID   int64
	Quantity int
	Restock  bool
	Force    bool
}
