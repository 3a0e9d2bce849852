package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

const track1 = "%B4111111111111111^DOE/JOHN^2512101000000000?"

func TestDetectSource(t *testing.T) {
	cases := []struct {
		name string
		data gateway.PaymentData
		want gateway.SourceKind
	}{
		{"profile", gateway.PaymentData{PaymentProfileID: "900000001"}, gateway.SourceProfile},
		{"card", gateway.PaymentData{Card: &gateway.Card{Number: "4111111111111111", Expiration: "12/30", CVV: "123"}}, gateway.SourceCard},
		{"track1", gateway.PaymentData{Track: track1}, gateway.SourceTrack1},
		{"track2", gateway.PaymentData{Track: ";4111111111111111=2512101000?"}, gateway.SourceTrack2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gateway.DetectSource(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectSource_Failures(t *testing.T) {
	_, err := gateway.DetectSource(gateway.PaymentData{})
	assert.ErrorIs(t, err, gateway.ErrMissingPaymentMethod)
	assert.Equal(t, failure.BadInput, failure.KindOf(err))

	_, err = gateway.DetectSource(gateway.PaymentData{PaymentProfileID: "12"})
	assert.ErrorIs(t, err, gateway.ErrUnknownPaymentType)

	_, err = gateway.DetectSource(gateway.PaymentData{Card: &gateway.Card{Number: "4111111111111111"}})
	assert.ErrorIs(t, err, gateway.ErrUnknownPaymentType)
}

func TestSplitTrack1(t *testing.T) {
	card, err := gateway.SplitTrack1(track1)
	require.NoError(t, err)

	assert.Equal(t, "4111111111111111", card.Number)
	assert.Equal(t, "JOHN", card.FirstName)
	assert.Equal(t, "DOE", card.LastName)
	assert.Equal(t, "12/25", card.Expiration)
}
