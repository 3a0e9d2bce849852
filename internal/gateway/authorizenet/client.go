// Package authorizenet talks to the Authorize.Net JSON API.
package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/money"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

const (
	SandboxEndpoint    = "https://apitest.authorize.net/xml/v1/request.api"
	ProductionEndpoint = "https://api.authorize.net/xml/v1/request.api"

	resultOK = "Ok"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

type Client struct {
	Endpoint    string
	HTTP        *http.Client
	Logger      logging.Logger
	credentials gateway.Credentials
}

var _ gateway.Client = (*Client)(nil)

func New(creds gateway.Credentials, endpoint string, timeout time.Duration, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Client{
		Endpoint:    endpoint,
		HTTP:        &http.Client{Timeout: timeout},
		Logger:      logger,
		credentials: creds,
	}
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{
		Name:           c.credentials.APILoginID,
		TransactionKey: c.credentials.TransactionKey,
	}
}

// call posts {name: body} and decodes the reply into out. Transport
// failures leave the remote outcome unknown.
func (c *Client) call(ctx context.Context, name string, body any, out any) error {
	payload, err := json.Marshal(map[string]any{name: body})
	if err != nil {
		return failure.Wrap(failure.Fatal, name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return failure.Wrap(failure.Fatal, name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("gateway call failed", map[string]any{
			"request": name,
			"error":   err,
		})
		return gateway.UnknownOutcome(name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.UnknownOutcome(name, err)
	}
	raw = bytes.TrimPrefix(raw, bom)

	c.Logger.Info("gateway call", map[string]any{
		"request":     name,
		"status":      resp.StatusCode,
		"duration-ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 || len(bytes.TrimSpace(raw)) == 0 {
		return gateway.NoResponse(name)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return failure.Wrap(failure.Fatal, name, err)
	}
	return nil
}

// check turns a non-Ok message block into a classified error.
func check(op string, m *messages) error {
	if m == nil {
		return gateway.NoResponse(op)
	}
	if m.ResultCode == resultOK {
		return nil
	}
	if len(m.Message) == 0 {
		return gateway.NewError(op, "", "request failed")
	}
	return gateway.NewError(op, m.Message[0].Code, m.Message[0].Text)
}

func (c *Client) CreateProfile(ctx context.Context, details gateway.ProfileDetails) (string, error) {
	const op = "createCustomerProfileRequest"
	var out createCustomerProfileResponse
	err := c.call(ctx, op, createCustomerProfileRequest{
		MerchantAuthentication: c.auth(),
		Profile: customerProfile{
			MerchantCustomerID: details.MerchantCustomerID,
			Description:        details.Description,
			Email:              details.Email,
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if err := check(op, out.Messages); err != nil {
		return "", err
	}
	return out.CustomerProfileID, nil
}

func (c *Client) LookupProfile(ctx context.Context, query gateway.ProfileQuery) (gateway.Lookup[gateway.Profile], error) {
	const op = "getCustomerProfileRequest"
	var out getCustomerProfileResponse
	err := c.call(ctx, op, getCustomerProfileRequest{
		MerchantAuthentication: c.auth(),
		CustomerProfileID:      query.ProfileID,
		MerchantCustomerID:     query.MerchantCustomerID,
		Email:                  query.Email,
	}, &out)
	if err != nil {
		return gateway.Missing[gateway.Profile](), err
	}
	if err := check(op, out.Messages); err != nil {
		if failure.IsNotFound(err) {
			return gateway.Missing[gateway.Profile](), nil
		}
		return gateway.Missing[gateway.Profile](), err
	}
	if out.Profile == nil {
		return gateway.Missing[gateway.Profile](), nil
	}

	p := gateway.Profile{
		ProfileID:          out.Profile.CustomerProfileID,
		MerchantCustomerID: out.Profile.MerchantCustomerID,
		Email:              out.Profile.Email,
		Description:        out.Profile.Description,
	}
	for _, pp := range out.Profile.PaymentProfiles {
		p.PaymentProfiles = append(p.PaymentProfiles, toPaymentProfile(pp))
	}
	return gateway.Found(p), nil
}

func (c *Client) UpdateProfile(ctx context.Context, profileID string, details gateway.ProfileDetails) error {
	const op = "updateCustomerProfileRequest"
	var out envelope
	err := c.call(ctx, op, updateCustomerProfileRequest{
		MerchantAuthentication: c.auth(),
		Profile: customerProfile{
			MerchantCustomerID: details.MerchantCustomerID,
			Description:        details.Description,
			Email:              details.Email,
			CustomerProfileID:  profileID,
		},
	}, &out)
	if err != nil {
		return err
	}
	return check(op, out.Messages)
}

func (c *Client) DeleteProfile(ctx context.Context, profileID string) error {
	const op = "deleteCustomerProfileRequest"
	var out envelope
	err := c.call(ctx, op, deleteCustomerProfileRequest{
		MerchantAuthentication: c.auth(),
		CustomerProfileID:      profileID,
	}, &out)
	if err != nil {
		return err
	}
	return check(op, out.Messages)
}

func (c *Client) ListProfileIDs(ctx context.Context) ([]string, error) {
	const op = "getCustomerProfileIdsRequest"
	var out getCustomerProfileIdsResponse
	err := c.call(ctx, op, getCustomerProfileIdsRequest{MerchantAuthentication: c.auth()}, &out)
	if err != nil {
		return nil, err
	}
	if err := check(op, out.Messages); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) AddPaymentProfile(ctx context.Context, profileID string, in gateway.PaymentProfileInput) (string, error) {
	const op = "createCustomerPaymentProfileRequest"
	var out createCustomerPaymentProfileResponse
	err := c.call(ctx, op, createCustomerPaymentProfileRequest{
		MerchantAuthentication: c.auth(),
		CustomerProfileID:      profileID,
		PaymentProfile: paymentProfileInput{
			CustomerType: "individual",
			BillTo: &billTo{
				FirstName: in.BillTo.FirstName,
				LastName:  in.BillTo.LastName,
				Address:   in.BillTo.Address,
				City:      in.BillTo.City,
				State:     in.BillTo.State,
				Zip:       in.BillTo.Zip,
				Country:   in.BillTo.Country,
			},
			Payment:               payment{CreditCard: toCreditCard(in.Card)},
			DefaultPaymentProfile: in.Default,
		},
		ValidationMode: "none",
	}, &out)
	if err != nil {
		return "", err
	}
	if err := check(op, out.Messages); err != nil {
		return "", err
	}
	return out.CustomerPaymentProfileID, nil
}

func (c *Client) GetPaymentProfile(ctx context.Context, profileID, paymentProfileID string) (*gateway.PaymentProfile, error) {
	const op = "getCustomerPaymentProfileRequest"
	var out getCustomerPaymentProfileResponse
	err := c.call(ctx, op, getCustomerPaymentProfileRequest{
		MerchantAuthentication:   c.auth(),
		CustomerProfileID:        profileID,
		CustomerPaymentProfileID: paymentProfileID,
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := check(op, out.Messages); err != nil {
		return nil, err
	}
	if out.PaymentProfile == nil {
		return nil, gateway.NoResponse(op)
	}
	pp := toPaymentProfile(*out.PaymentProfile)
	return &pp, nil
}

func (c *Client) DeletePaymentProfile(ctx context.Context, profileID, paymentProfileID string) error {
	const op = "deleteCustomerPaymentProfileRequest"
	var out envelope
	err := c.call(ctx, op, deleteCustomerPaymentProfileRequest{
		MerchantAuthentication:   c.auth(),
		CustomerProfileID:        profileID,
		CustomerPaymentProfileID: paymentProfileID,
	}, &out)
	if err != nil {
		return err
	}
	return check(op, out.Messages)
}

func (c *Client) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.TransactionResult, error) {
	tr := transactionRequest{
		TransactionType: string(ledger.TypeCapture),
		Amount:          money.FormatCents(req.Amount),
	}
	switch {
	case req.PaymentProfileID != "":
		tr.Profile = &customerProfilePayment{
			CustomerProfileID: req.ProfileID,
			PaymentProfile:    profilePaymentProfile{PaymentProfileID: req.PaymentProfileID},
		}
	case req.Card != nil:
		tr.Payment = &payment{CreditCard: toCreditCard(*req.Card)}
	case req.Track1 != "":
		tr.Payment = &payment{TrackData: &trackData{Track1: req.Track1}}
	default:
		return nil, gateway.ErrMissingPaymentMethod
	}
	if req.InvoiceNumber != "" || req.Description != "" {
		tr.Order = &order{InvoiceNumber: req.InvoiceNumber, Description: req.Description}
	}
	return c.transact(ctx, tr, req.Amount)
}

func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.TransactionResult, error) {
	tr := transactionRequest{
		TransactionType: string(ledger.TypeRefund),
		Amount:          money.FormatCents(req.Amount),
		Payment: &payment{CreditCard: &creditCard{
			CardNumber:     req.LastFour,
			ExpirationDate: "XXXX",
		}},
		RefTransID: req.RefTransactionID,
	}
	return c.transact(ctx, tr, req.Amount)
}

func (c *Client) Void(ctx context.Context, transactionID string) (*gateway.TransactionResult, error) {
	tr := transactionRequest{
		TransactionType: string(ledger.TypeVoid),
		RefTransID:      transactionID,
	}
	return c.transact(ctx, tr, 0)
}

func (c *Client) transact(ctx context.Context, tr transactionRequest, amount int64) (*gateway.TransactionResult, error) {
	const op = "createTransactionRequest"
	var out createTransactionResponse
	err := c.call(ctx, op, createTransactionRequest{
		MerchantAuthentication: c.auth(),
		TransactionRequest:     tr,
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.Messages == nil {
		return nil, gateway.NoResponse(op)
	}
	if out.Messages.ResultCode != resultOK {
		// A declined transaction comes back as E00027; the response code
		// carries the real reason.
		if len(out.Messages.Message) > 0 &&
			out.Messages.Message[0].Code == gateway.CodeTransactionDeclined &&
			out.TransactionResponse != nil {
			return nil, responseError(op, out.TransactionResponse)
		}
		return nil, check(op, out.Messages)
	}

	resp := out.TransactionResponse
	if resp == nil {
		return nil, gateway.NoResponse(op)
	}
	if resp.ResponseCode != gateway.ResponseApproved {
		return nil, responseError(op, resp)
	}

	return &gateway.TransactionResult{
		Type:          ledger.Type(tr.TransactionType),
		AuthCode:      resp.AuthCode,
		TransactionID: resp.TransID,
		Amount:        amount,
		LastFour:      customer.LastFour(resp.AccountNumber),
	}, nil
}

func (c *Client) GetTransactionDetails(ctx context.Context, transactionID string) (*gateway.TransactionDetails, error) {
	const op = "getTransactionDetailsRequest"
	var out getTransactionDetailsResponse
	err := c.call(ctx, op, getTransactionDetailsRequest{
		MerchantAuthentication: c.auth(),
		TransID:                transactionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := check(op, out.Messages); err != nil {
		return nil, err
	}
	if out.Transaction == nil {
		return nil, gateway.NoResponse(op)
	}

	settle, err := money.FromDecimal(out.Transaction.SettleAmount)
	if err != nil {
		return nil, failure.Wrap(failure.Fatal, op, err)
	}
	return &gateway.TransactionDetails{
		TransactionID: out.Transaction.TransID,
		Type:          ledger.Type(out.Transaction.TransactionType),
		Status:        ledger.RemoteStatus(out.Transaction.TransactionStatus),
		SettleAmount:  settle,
	}, nil
}

func responseError(op string, resp *transactionResponse) error {
	var code, text string
	if len(resp.Errors) > 0 {
		code = resp.Errors[0].ErrorCode
		text = resp.Errors[0].ErrorText
	}
	if text == "" {
		text = "transaction not approved"
	}
	return gateway.NewResponseError(op, resp.ResponseCode, code, text)
}

func toCreditCard(card gateway.Card) *creditCard {
	return &creditCard{
		CardNumber:     card.Number,
		ExpirationDate: card.Expiration,
		CardCode:       card.CVV,
	}
}

func toPaymentProfile(pp paymentProfileMasked) gateway.PaymentProfile {
	out := gateway.PaymentProfile{
		ID:      pp.CustomerPaymentProfileID,
		Default: pp.DefaultPaymentProfile,
	}
	if cc := pp.Payment.CreditCard; cc != nil {
		out.Card = &gateway.CardMask{
			Number:     cc.CardNumber,
			Expiration: cc.ExpirationDate,
			Type:       cc.CardType,
		}
	}
	if ba := pp.Payment.BankAccount; ba != nil {
		out.BankAccount = &gateway.BankAccountMask{
			AccountNumber: ba.AccountNumber,
			RoutingNumber: ba.RoutingNumber,
			AccountType:   ba.AccountType,
			BankName:      ba.BankName,
			NameOnAccount: ba.NameOnAccount,
			EcheckType:    ba.EcheckType,
		}
	}
	return out
}
