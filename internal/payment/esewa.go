// Package payment talks to the eSewa gateway: it signs outbound payment forms
// and verifies the signed callback the gateway sends back.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
)

var tracer = otel.Tracer("github.com/MikeMC777/tienda-ecom/internal/payment")

const (
	// SignedFieldNames is the field list the gateway expects, in signing order.
	SignedFieldNames = "total_amount,transaction_uuid,product_code"
	StatusComplete   = "COMPLETE"
)

// FormData is posted by the browser to the gateway's payment form.
// swagger:model EsewaFormData
type FormData struct {
	Amount                string `json:"amount"`
	FailureURL            string `json:"failure_url"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductCode           string `json:"product_code"`
	Signature             string `json:"signature"`
	SignedFieldNames      string `json:"signed_field_names"`
	SuccessURL            string `json:"success_url"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
}

// Transaction is a callback that passed verification.
type Transaction struct {
	OrderID         string
	TransactionUUID string
	TransactionCode string
	Amount          decimal.Decimal
	Status          string
}

type Gateway struct {
	cfg     config.Esewa
	newID   func() string
	metrics *metrics.Metrics
}

type Option func(*Gateway)

func WithMetrics(m *metrics.Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// WithIDGenerator replaces the random transaction suffix.
func WithIDGenerator(f func() string) Option { return func(g *Gateway) { g.newID = f } }

func NewGateway(cfg config.Esewa, opts ...Option) *Gateway {
	g := &Gateway{cfg: cfg, newID: uuid.NewString}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Sign is base64(HMAC-SHA256(secret, message)).
func (g *Gateway) Sign(message string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.Secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// BuildRequest signs a payment form for orderID. The transaction id is
// "<orderID>-<uuid>", so orderID itself must not contain a hyphen.
func (g *Gateway) BuildRequest(ctx context.Context, orderID string, amount decimal.Decimal) (_ FormData, err error) {
	ctx, done := g.metrics.UseCase(ctx, tracer, "payment.build_request", attribute.String("order_id", orderID))
	defer func() { done(err) }()

	if orderID == "" || strings.Contains(orderID, "-") {
		return FormData{}, apperr.Invalid("Invalid order id")
	}
	if !amount.IsPositive() {
		return FormData{}, apperr.Invalid("Amount must be greater than zero")
	}

	txID := orderID + "-" + g.newID()
	amt := amount.String()
	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", amt, txID, g.cfg.ProductCode)

	logging.FromContext(ctx).Info("esewa_request_signed",
		zap.String("order_id", orderID), zap.String("transaction_uuid", txID), zap.String("amount", amt))

	return FormData{
		Amount:                amt,
		FailureURL:            g.cfg.FailureURL,
		ProductDeliveryCharge: "0",
		ProductServiceCharge:  "0",
		ProductCode:           g.cfg.ProductCode,
		Signature:             g.Sign(msg),
		SignedFieldNames:      SignedFieldNames,
		SuccessURL:            g.cfg.SuccessURL,
		TaxAmount:             "0",
		TotalAmount:           amt,
		TransactionUUID:       txID,
	}, nil
}

var requiredFields = []string{"status", "signed_field_names", "transaction_uuid", "total_amount", "signature"}

// VerifyCallback decodes the base64 "data" query value, checks the status,
// rebuilds the signed message from the callback's own signed_field_names and
// compares signatures in constant time. The field list must at least cover
// the amount and the transaction id.
func (g *Gateway) VerifyCallback(ctx context.Context, data string) (_ *Transaction, err error) {
	ctx, done := g.metrics.UseCase(ctx, tracer, "payment.verify_callback")
	defer func() { done(err) }()

	fields, err := decodeCallback(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedCallback, "Malformed payment callback", err)
	}
	for _, k := range requiredFields {
		if _, ok := fields[k]; !ok {
			return nil, apperr.Newf(apperr.MalformedCallback, "Payment callback is missing %s", k)
		}
	}

	status := fieldString(fields["status"])
	if status != StatusComplete {
		return nil, apperr.Newf(apperr.PaymentNotComplete, "Payment status is %s", status)
	}

	names := strings.Split(fieldString(fields["signed_field_names"]), ",")
	if !contains(names, "total_amount") || !contains(names, "transaction_uuid") {
		return nil, apperr.New(apperr.SignatureMismatch, "Integrity error: unsigned amount or transaction")
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+fieldString(fields[n]))
	}
	want := g.Sign(strings.Join(parts, ","))
	if !hmac.Equal([]byte(want), []byte(fieldString(fields["signature"]))) {
		return nil, apperr.New(apperr.SignatureMismatch, "Integrity error: Signature mismatch")
	}

	txID := fieldString(fields["transaction_uuid"])
	orderID := OrderIDFromTransaction(txID)
	if orderID == "" {
		return nil, apperr.New(apperr.MalformedCallback, "Invalid transaction id")
	}
	amount, err := ParseAmount(fieldString(fields["total_amount"]))
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedCallback, "Invalid payment amount", err)
	}

	return &Transaction{
		OrderID:         orderID,
		TransactionUUID: txID,
		TransactionCode: fieldString(fields["transaction_code"]),
		Amount:          amount,
		Status:          status,
	}, nil
}

// OrderIDFromTransaction returns the part before the first hyphen.
func OrderIDFromTransaction(txID string) string {
	id, _, _ := strings.Cut(txID, "-")
	return id
}

// ParseAmount accepts gateway amounts such as "1,000.0".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

func decodeCallback(data string) (map[string]any, error) {
	// A "+" that reached us through an unescaped query string reads as a space.
	data = strings.ReplaceAll(strings.TrimSpace(data), " ", "+")
	if data == "" {
		return nil, fmt.Errorf("empty data")
	}

	var (
		raw []byte
		err error
	)
	for _, enc := range encodings {
		if raw, err = enc.DecodeString(data); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode json: not an object")
	}
	return fields, nil
}

// fieldString renders a callback value the way it was signed. Absent and
// null values sign as the empty string.
func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
