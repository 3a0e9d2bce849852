package gateway

import (
	"fmt"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

// Result codes the gateway reports at message level.
const (
	CodeProcessingError       = "E00001"
	CodeInvalidPaymentProfile = "E00013"
	CodeInvalidFieldLength    = "E00015"
	CodeTransactionDeclined   = "E00027"
	CodeDuplicateRecord       = "E00039"
	CodeRecordNotFound        = "E00040"
	CodePaymentProfileLimit   = "E00042"
	CodeServerBusy            = "E00053"
	CodeBankNotAccepted       = "E00083"
	CodeCardNotAccepted       = "E00084"
	CodeInvalidState          = "E00085"
	CodeMaintenance           = "E00104"
	CodeInvalidPaymentData    = "E00105"
)

var codeKinds = map[string]failure.Kind{
	CodeProcessingError:       failure.Retryable,
	CodeServerBusy:            failure.Retryable,
	CodeMaintenance:           failure.Retryable,
	CodeInvalidPaymentProfile: failure.BadInput,
	CodeInvalidFieldLength:    failure.BadInput,
	CodeBankNotAccepted:       failure.BadInput,
	CodeCardNotAccepted:       failure.BadInput,
	CodeInvalidState:          failure.BadInput,
	CodeInvalidPaymentData:    failure.BadInput,
	CodeDuplicateRecord:       failure.Conflict,
	CodePaymentProfileLimit:   failure.Conflict,
	CodeRecordNotFound:        failure.NotFound,
}

// Transaction-level response codes.
const (
	ResponseApproved        = "1"
	ResponseDeclined        = "2"
	ResponseReferral        = "3"
	ResponsePickUpCard      = "4"
	ResponseInvalidCard     = "6"
	ResponseDuplicateCharge = "11"
)

var responseKinds = map[string]failure.Kind{
	ResponseDeclined:        failure.BadInput,
	ResponseReferral:        failure.BadInput,
	ResponsePickUpCard:      failure.BadInput,
	ResponseInvalidCard:     failure.BadInput,
	ResponseDuplicateCharge: failure.Conflict,
}

// Classify maps a message-level result code to a failure kind. Unknown
// codes are Fatal.
func Classify(code string) failure.Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return failure.Fatal
}

// ClassifyResponse maps a transaction response code for a request that
// was not approved.
func ClassifyResponse(code string) failure.Kind {
	if k, ok := responseKinds[code]; ok {
		return k
	}
	return failure.Fatal
}

// NewError builds the classified error for a failed operation.
func NewError(op, code, text string) *failure.Error {
	return &failure.Error{Kind: Classify(code), Code: code, Op: op, Message: text}
}

func NewResponseError(op, responseCode, errorCode, text string) *failure.Error {
	code := "response:" + responseCode
	if errorCode != "" {
		code += "/" + errorCode
	}
	return &failure.Error{Kind: ClassifyResponse(responseCode), Code: code, Op: op, Message: text}
}

func NoResponse(op string) *failure.Error {
	return failure.Wrap(failure.Fatal, op, ErrNoResponse)
}

func UnknownOutcome(op string, cause error) *failure.Error {
	return failure.Wrap(failure.Fatal, op, fmt.Errorf("%w: %w", ErrUnknownOutcome, cause))
}
