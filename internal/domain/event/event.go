package event

import (
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	ReconcileRequested Type = "RECONCILE_REQUESTED"
	OrderPlaced        Type = "ORDER_PLACED"
	RefundIssued       Type = "REFUND_ISSUED"
	ReturnIssued       Type = "RETURN_ISSUED"
	TransactionVoided  Type = "TRANSACTION_VOIDED"
)

// Notifications are the event types forwarded to external subscribers.
var Notifications = []Type{OrderPlaced, RefundIssued, ReturnIssued, TransactionVoided}

type Event struct {
	ID         string
	Type       Type
	OccurredAt time.Time
	Payload    any
}

// DecodePayload turns a stored payload back into its typed struct.
func DecodePayload(t Type, raw []byte) (any, error) {
	var (
		payload any
		err     error
	)

	switch t {
	case ReconcileRequested:
		var p ReconcileRequestedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case OrderPlaced:
		var p OrderPlacedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case RefundIssued:
		var p RefundIssuedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ReturnIssued:
		var p ReturnIssuedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case TransactionVoided:
		var p TransactionVoidedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return payload, nil
}
