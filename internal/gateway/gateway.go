// Package gateway implements the payment provider's side of the settlement
// contract: HMAC-signed confirmation payloads and the fixed acknowledgement
// vocabulary the provider understands as "stop retrying" versus "retry me".
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tixgate/internal/model"
	apperrors "tixgate/pkg/app_errors"
)

// Confirmation payload parameter names. Both the server-to-server webhook and
// the client-redirect finalize carry the same parameters.
const (
	ParamOrderRef      = "order_ref"
	ParamAmount        = "amount"
	ParamResponseCode  = "response_code"
	ParamTransactionNo = "transaction_no"
	ParamPayMethod     = "pay_method"
	ParamSecureHash    = "secure_hash"
)

// ResponseCodeSuccess is the gateway's "payment captured" response code.
const ResponseCodeSuccess = "00"

// AckCode is what we answer the gateway with. Every code except AckRetry is
// terminal: the gateway must stop re-delivering the confirmation.
type AckCode string

const (
	AckRecorded       AckCode = "00" // outcome recorded
	AckOrderNotFound  AckCode = "01" // unknown order, do not retry
	AckAlreadyDone    AckCode = "02" // duplicate of a settled confirmation
	AckAmountMismatch AckCode = "04" // reported amount differs from the order
	AckBadSignature   AckCode = "97" // signature verification failed
	AckRetry          AckCode = "99" // transient failure, retry welcome
)

// Ack is the response body both confirmation endpoints render.
type Ack struct {
	RspCode AckCode `json:"rsp_code"`
	Message string  `json:"message"`
}

// Verifier checks confirmation authenticity and converts the raw payload into
// the settlement core's confirmation value.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign computes the HMAC-SHA512 signature over the canonical form of params:
// every parameter except secure_hash, sorted by key, url-encoded and joined
// with '&'.
func (v *Verifier) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamSecureHash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the payload's secure_hash in constant time.
func (v *Verifier) Verify(params map[string]string) error {
	got, ok := params[ParamSecureHash]
	if !ok || got == "" {
		return apperrors.ErrInvalidSignature
	}
	want := v.Sign(params)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return apperrors.ErrInvalidSignature
	}
	return nil
}

// ParseConfirmation verifies authenticity and builds the settlement core's
// input. The gateway reports amounts in minor units (majors multiplied by
// 100, a fixed contract); the value is shifted back to majors here so the
// core compares like with like.
func (v *Verifier) ParseConfirmation(params map[string]string) (*model.PaymentConfirmation, error) {
	if err := v.Verify(params); err != nil {
		return nil, err
	}

	orderID, err := strconv.Atoi(params[ParamOrderRef])
	if err != nil {
		return nil, apperrors.ErrOrderNotFound
	}

	minor, err := decimal.NewFromString(params[ParamAmount])
	if err != nil {
		return nil, apperrors.ErrInvalidInput
	}

	return &model.PaymentConfirmation{
		OrderID:         orderID,
		Success:         params[ParamResponseCode] == ResponseCodeSuccess,
		Amount:          minor.Shift(-2),
		PaymentMethod:   params[ParamPayMethod],
		TransactionCode: params[ParamTransactionNo],
	}, nil
}
