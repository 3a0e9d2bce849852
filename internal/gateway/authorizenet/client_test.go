package authorizenet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/money"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(gateway.Credentials{APILoginID: "login", TransactionKey: "key"}, srv.URL, 2*time.Second, nil)
	return c, srv
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(append([]byte{0xEF, 0xBB, 0xBF}, body...))
	}
}

func TestCreateProfile_StripsBOMAndReturnsID(t *testing.T) {
	var got map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		reply(`{"customerProfileId":"1501","messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`)(w, r)
	})

	id, err := c.CreateProfile(context.Background(), gateway.ProfileDetails{MerchantCustomerID: "42", Email: "a@b.c"})

	require.NoError(t, err)
	require.Equal(t, "1501", id)
	require.Contains(t, got, "createCustomerProfileRequest")
	require.Contains(t, string(got["createCustomerProfileRequest"]), `"name":"login"`)
}

func TestLookupProfile_NotFoundIsMissing(t *testing.T) {
	c, _ := newTestClient(t, reply(`{"messages":{"resultCode":"Error","message":[{"code":"E00040","text":"The record cannot be found."}]}}`))

	res, err := c.LookupProfile(context.Background(), gateway.ProfileQuery{MerchantCustomerID: "42"})

	require.NoError(t, err)
	require.False(t, res.Found)
}

func TestLookupProfile_Found(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"profile":{"merchantCustomerId":"42","email":"a@b.c","customerProfileId":"1501",
			"paymentProfiles":[{"defaultPaymentProfile":true,"customerPaymentProfileId":"900000001",
				"payment":{"creditCard":{"cardNumber":"XXXX1111","expirationDate":"XXXX","cardType":"Visa"}}}]},
		"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))

	res, err := c.LookupProfile(context.Background(), gateway.ProfileQuery{ProfileID: "1501"})

	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, "1501", res.Value.ProfileID)
	require.Len(t, res.Value.PaymentProfiles, 1)
	require.True(t, res.Value.PaymentProfiles[0].Default)
	require.Equal(t, "XXXX1111", res.Value.PaymentProfiles[0].Card.Number)
}

func TestCharge_Approved(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transactionResponse":{"responseCode":"1","authCode":"ABC123","transId":"60001","accountNumber":"XXXX1111"},
		"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))

	res, err := c.Charge(context.Background(), gateway.ChargeRequest{
		Amount:           1050,
		ProfileID:        "1501",
		PaymentProfileID: "900000001",
	})

	require.NoError(t, err)
	require.Equal(t, ledger.TypeCapture, res.Type)
	require.Equal(t, "60001", res.TransactionID)
	require.Equal(t, "1111", res.LastFour)
	require.Equal(t, int64(1050), res.Amount)
}

func TestCharge_DeclinedIsClassifiedByResponseCode(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transactionResponse":{"responseCode":"2","transId":"0","errors":[{"errorCode":"2","errorText":"This transaction has been declined."}]},
		"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`))

	_, err := c.Charge(context.Background(), gateway.ChargeRequest{Amount: 100, Card: &gateway.Card{Number: "4111111111111111", Expiration: "12/30", CVV: "123"}})

	require.Error(t, err)
	require.Equal(t, failure.BadInput, failure.KindOf(err))
	require.Contains(t, err.Error(), "declined")
}

func TestCharge_DuplicateIsConflict(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transactionResponse":{"responseCode":"11","errors":[{"errorCode":"11","errorText":"A duplicate transaction has been submitted."}]},
		"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`))

	_, err := c.Charge(context.Background(), gateway.ChargeRequest{Amount: 100, Track1: "%B4111111111111111^DOE/JOHN^2512101000000000?"})

	require.Equal(t, failure.Conflict, failure.KindOf(err))
}

func TestCharge_WithoutSourceIsBadInput(t *testing.T) {
	c, _ := newTestClient(t, reply(`{}`))

	_, err := c.Charge(context.Background(), gateway.ChargeRequest{Amount: 100})

	require.Equal(t, failure.BadInput, failure.KindOf(err))
}

func TestCall_ServerErrorIsNoResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListProfileIDs(context.Background())

	require.ErrorIs(t, err, gateway.ErrNoResponse)
	require.Equal(t, failure.Fatal, failure.KindOf(err))
}

func TestCall_EmptyBodyIsNoResponse(t *testing.T) {
	c, _ := newTestClient(t, reply(``))

	err := c.DeleteProfile(context.Background(), "1501")

	require.ErrorIs(t, err, gateway.ErrNoResponse)
}

func TestCall_TransportFailureIsUnknownOutcome(t *testing.T) {
	c, srv := newTestClient(t, reply(`{}`))
	srv.Close()

	_, err := c.Void(context.Background(), "60001")

	require.ErrorIs(t, err, gateway.ErrUnknownOutcome)
	require.Equal(t, failure.Fatal, failure.KindOf(err))
	require.False(t, errors.Is(err, gateway.ErrNoResponse))
}

func TestCall_RetryableResultCode(t *testing.T) {
	c, _ := newTestClient(t, reply(`{"messages":{"resultCode":"Error","message":[{"code":"E00053","text":"Server too busy"}]}}`))

	_, err := c.ListProfileIDs(context.Background())

	require.True(t, failure.IsRetryable(err))
}

func TestGetTransactionDetails(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transaction":{"transId":"60001","transactionType":"authCaptureTransaction","transactionStatus":"settledSuccessfully","settleAmount":10.5},
		"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))

	d, err := c.GetTransactionDetails(context.Background(), "60001")

	require.NoError(t, err)
	require.Equal(t, ledger.StatusSettledSuccessfully, d.Status)
	require.Equal(t, int64(1050), d.SettleAmount)
}

func TestGetTransactionDetails_SettleAmountIsExact(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transaction":{"transId":"60002","transactionType":"authCaptureTransaction","transactionStatus":"settledSuccessfully","settleAmount":1234567.89},
		"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))

	d, err := c.GetTransactionDetails(context.Background(), "60002")

	require.NoError(t, err)
	require.Equal(t, int64(123456789), d.SettleAmount)
}

func TestGetTransactionDetails_RejectsSubCentSettleAmount(t *testing.T) {
	c, _ := newTestClient(t, reply(`{
		"transaction":{"transId":"60003","transactionType":"authCaptureTransaction","transactionStatus":"settledSuccessfully","settleAmount":10.505},
		"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))

	_, err := c.GetTransactionDetails(context.Background(), "60003")

	require.Equal(t, failure.Fatal, failure.KindOf(err))
	require.ErrorIs(t, err, money.ErrBadAmount)
}

func TestTransactionRequest_FieldOrder(t *testing.T) {
	raw, err := json.Marshal(createTransactionRequest{
		MerchantAuthentication: merchantAuthentication{Name: "n", TransactionKey: "k"},
		TransactionRequest: transactionRequest{
			TransactionType: "refundTransaction",
			Amount:          "5.00",
			Payment:         &payment{CreditCard: &creditCard{CardNumber: "1111", ExpirationDate: "XXXX"}},
			RefTransID:      "60001",
		},
	})
	require.NoError(t, err)

	s := string(raw)
	order := []string{`"merchantAuthentication"`, `"transactionType"`, `"amount"`, `"payment"`, `"refTransId"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		require.Greater(t, idx, last, key)
		last = idx
	}
}
