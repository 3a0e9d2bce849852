package authorizenet

// Wire shapes for the JSON API. The gateway validates element order against
// its XML schema, so struct field order below is significant.

import "github.com/shopspring/decimal"

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type message struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type messages struct {
	ResultCode string    `json:"resultCode"`
	Message    []message `json:"message"`
}

type envelope struct {
	Messages *messages `json:"messages"`
}

type customerProfile struct {
	MerchantCustomerID string `json:"merchantCustomerId,omitempty"`
	Description        string `json:"description,omitempty"`
	Email              string `json:"email,omitempty"`
	CustomerProfileID  string `json:"customerProfileId,omitempty"`
}

type createCustomerProfileRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	Profile                customerProfile        `json:"profile"`
}

type createCustomerProfileResponse struct {
	CustomerProfileID string    `json:"customerProfileId"`
	Messages          *messages `json:"messages"`
}

type getCustomerProfileRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID      string                 `json:"customerProfileId,omitempty"`
	MerchantCustomerID     string                 `json:"merchantCustomerId,omitempty"`
	Email                  string                 `json:"email,omitempty"`
}

type creditCardMasked struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardType       string `json:"cardType"`
}

type bankAccountMasked struct {
	AccountType   string `json:"accountType"`
	RoutingNumber string `json:"routingNumber"`
	AccountNumber string `json:"accountNumber"`
	NameOnAccount string `json:"nameOnAccount"`
	EcheckType    string `json:"echeckType"`
	BankName      string `json:"bankName"`
}

type paymentMasked struct {
	CreditCard  *creditCardMasked  `json:"creditCard,omitempty"`
	BankAccount *bankAccountMasked `json:"bankAccount,omitempty"`
}

type paymentProfileMasked struct {
	DefaultPaymentProfile    bool          `json:"defaultPaymentProfile"`
	CustomerPaymentProfileID string        `json:"customerPaymentProfileId"`
	Payment                  paymentMasked `json:"payment"`
}

type customerProfileMasked struct {
	MerchantCustomerID string                 `json:"merchantCustomerId"`
	Description        string                 `json:"description"`
	Email              string                 `json:"email"`
	CustomerProfileID  string                 `json:"customerProfileId"`
	PaymentProfiles    []paymentProfileMasked `json:"paymentProfiles"`
}

type getCustomerProfileResponse struct {
	Profile  *customerProfileMasked `json:"profile"`
	Messages *messages              `json:"messages"`
}

type updateCustomerProfileRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	Profile                customerProfile        `json:"profile"`
}

type deleteCustomerProfileRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID      string                 `json:"customerProfileId"`
}

type getCustomerProfileIdsRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
}

type getCustomerProfileIdsResponse struct {
	IDs      []string  `json:"ids"`
	Messages *messages `json:"messages"`
}

type billTo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type trackData struct {
	Track1 string `json:"track1"`
}

type payment struct {
	CreditCard *creditCard `json:"creditCard,omitempty"`
	TrackData  *trackData  `json:"trackData,omitempty"`
}

type paymentProfileInput struct {
	CustomerType          string  `json:"customerType"`
	BillTo                *billTo `json:"billTo,omitempty"`
	Payment               payment `json:"payment"`
	DefaultPaymentProfile bool    `json:"defaultPaymentProfile"`
}

type createCustomerPaymentProfileRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID      string                 `json:"customerProfileId"`
	PaymentProfile         paymentProfileInput    `json:"paymentProfile"`
	ValidationMode         string                 `json:"validationMode"`
}

type createCustomerPaymentProfileResponse struct {
	CustomerPaymentProfileID string    `json:"customerPaymentProfileId"`
	Messages                 *messages `json:"messages"`
}

type getCustomerPaymentProfileRequest struct {
	MerchantAuthentication   merchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID        string                 `json:"customerProfileId"`
	CustomerPaymentProfileID string                 `json:"customerPaymentProfileId"`
}

type getCustomerPaymentProfileResponse struct {
	PaymentProfile *paymentProfileMasked `json:"paymentProfile"`
	Messages       *messages             `json:"messages"`
}

type deleteCustomerPaymentProfileRequest struct {
	MerchantAuthentication   merchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID        string                 `json:"customerProfileId"`
	CustomerPaymentProfileID string                 `json:"customerPaymentProfileId"`
}

type profilePaymentProfile struct {
	PaymentProfileID string `json:"paymentProfileId"`
}

type customerProfilePayment struct {
	CustomerProfileID string                `json:"customerProfileId"`
	PaymentProfile    profilePaymentProfile `json:"paymentProfile"`
}

type order struct {
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Description   string `json:"description,omitempty"`
}

type transactionRequest struct {
	TransactionType string                  `json:"transactionType"`
	Amount          string                  `json:"amount,omitempty"`
	CurrencyCode    string                  `json:"currencyCode,omitempty"`
	Payment         *payment                `json:"payment,omitempty"`
	Profile         *customerProfilePayment `json:"profile,omitempty"`
	RefTransID      string                  `json:"refTransId,omitempty"`
	Order           *order                  `json:"order,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     transactionRequest     `json:"transactionRequest"`
}

type transactionError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type transactionResponse struct {
	ResponseCode  string             `json:"responseCode"`
	AuthCode      string             `json:"authCode"`
	TransID       string             `json:"transId"`
	AccountNumber string             `json:"accountNumber"`
	AccountType   string             `json:"accountType"`
	Errors        []transactionError `json:"errors"`
}

type createTransactionResponse struct {
	TransactionResponse *transactionResponse `json:"transactionResponse"`
	Messages            *messages            `json:"messages"`
}

type getTransactionDetailsRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	TransID                string                 `json:"transId"`
}

type transactionDetails struct {
	TransID           string          `json:"transId"`
	TransactionType   string          `json:"transactionType"`
	TransactionStatus string          `json:"transactionStatus"`
	SettleAmount      decimal.Decimal `json:"settleAmount"`
}

type getTransactionDetailsResponse struct {
	Transaction *transactionDetails `json:"transaction"`
	Messages    *messages           `json:"messages"`
}
