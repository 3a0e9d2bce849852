package gateway

import (
	"regexp"
	"strings"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

type SourceKind string

const (
	SourceProfile SourceKind = "payment_profile"
	SourceCard    SourceKind = "credit_card"
	SourceTrack1  SourceKind = "track_1"
	SourceTrack2  SourceKind = "track_2"
)

// PaymentData is whatever the caller handed over to pay with. Exactly one
// field is expected to be set.
type PaymentData struct {
	PaymentProfileID string
	Card             *Card
	Track            string
}

var (
	track1Pattern  = regexp.MustCompile(`^%?B\d{0,19}\^[\w\s/]{2,26}\^\d{7}\w*\??$`)
	track2Pattern  = regexp.MustCompile(`;\d{0,19}=\d{7}\w*\?`)
	profilePattern = regexp.MustCompile(`^\d{9,10}$`)
)

var (
	ErrMissingPaymentMethod = failure.New(failure.BadInput, "missing payment method")
	ErrUnknownPaymentType   = failure.New(failure.BadInput, "unknown payment type")
)

// DetectSource works out which kind of payment data d carries.
func DetectSource(d PaymentData) (SourceKind, error) {
	switch {
	case d.Card != nil:
		if d.Card.Number == "" || d.Card.Expiration == "" || d.Card.CVV == "" {
			return "", ErrUnknownPaymentType
		}
		return SourceCard, nil
	case d.Track != "":
		if track1Pattern.MatchString(d.Track) {
			return SourceTrack1, nil
		}
		if track2Pattern.MatchString(d.Track) {
			return SourceTrack2, nil
		}
		return "", ErrUnknownPaymentType
	case d.PaymentProfileID != "":
		if profilePattern.MatchString(d.PaymentProfileID) {
			return SourceProfile, nil
		}
		return "", ErrUnknownPaymentType
	}
	return "", ErrMissingPaymentMethod
}

// SplitTrack1 pulls the card number, holder name and expiration out of
// magnetic stripe track 1 data.
func SplitTrack1(track string) (Card, error) {
	if !track1Pattern.MatchString(track) {
		return Card{}, ErrUnknownPaymentType
	}

	parts := strings.Split(track, "^")
	number := strings.TrimPrefix(parts[0], "%")
	number = strings.TrimPrefix(number, "B")

	var first, last string
	names := strings.SplitN(parts[1], "/", 2)
	last = strings.TrimSpace(names[0])
	if len(names) == 2 {
		first = strings.TrimSpace(names[1])
	}

	year := parts[2][0:2]
	month := parts[2][2:4]

	return Card{
		Number:     number,
		Expiration: month + "/" + year,
		FirstName:  first,
		LastName:   last,
	}, nil
}
