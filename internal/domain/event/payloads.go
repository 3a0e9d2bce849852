package event

type ReconcileRequestedPayload struct {
	LedgerEntryID string `json:"ledger_entry_id"`
	Attempt       int    `json:"attempt"`
}

type OrderPlacedPayload struct {
	TransactionID  string `json:"transaction_id"`
	OrganizationID int64  `json:"organization_id"`
	CustomerID     int64  `json:"customer_id"`
	LedgerEntryID  string `json:"ledger_entry_id,omitempty"`
	AmountCharged  int64  `json:"amount_charged"`
}

type ReturnedItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
	Restock  bool  `json:"restock"`
}

type RefundIssuedPayload struct {
	TransactionID string         `json:"transaction_id"`
	LedgerEntryID string         `json:"ledger_entry_id"`
	Amount        int64          `json:"amount"`
	Items         []ReturnedItem `json:"items"`
}

// ReturnIssuedPayload is a return settled as store credit.
type ReturnIssuedPayload struct {
	TransactionID    string         `json:"transaction_id"`
	CustomerID       int64          `json:"customer_id"`
	CreditMovementID string         `json:"credit_movement_id"`
	Amount           int64          `json:"amount"`
	Items            []ReturnedItem `json:"items"`
}

type TransactionVoidedPayload struct {
	TransactionID string `json:"transaction_id"`
	LedgerEntryID string `json:"ledger_entry_id"`
}
