package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/config"
)

func testGateway() *Gateway {
	return NewGateway(config.Esewa{
		Secret:      "8gBm/:&EnhH.1/q",
		ProductCode: "EPAYTEST",
		SuccessURL:  "http://localhost:5000/api/esewa/success",
		FailureURL:  "http://localhost:5000/api/esewa/failure",
	}, WithIDGenerator(func() string { return "3f2c9a6e-0b7d-4f5e-9a1c-2d4b6e8f0a12" }))
}

// gatewayCallback signs fields the way the gateway does and encodes them.
func gatewayCallback(t *testing.T, g *Gateway, fields map[string]any, enc *base64.Encoding) string {
	t.Helper()
	names := strings.Split(fields["signed_field_names"].(string), ",")
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+fieldString(fields[n]))
	}
	if _, ok := fields["signature"]; !ok {
		fields["signature"] = g.Sign(strings.Join(parts, ","))
	}
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return enc.EncodeToString(raw)
}

func completeFields(form FormData) map[string]any {
	return map[string]any{
		"transaction_code":   "000AWEO",
		"status":             "COMPLETE",
		"total_amount":       form.TotalAmount,
		"transaction_uuid":   form.TransactionUUID,
		"product_code":       form.ProductCode,
		"signed_field_names": "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
}

func TestSign_KnownVectors(t *testing.T) {
	g := testGateway()
	assert.Equal(t, "i94zsd3oXF6ZsSr/kGqT4sSzYQzjj1W/waxjWyRwaME=",
		g.Sign("total_amount=110,transaction_uuid=241028,product_code=EPAYTEST"))
	assert.Equal(t, "5DZywcrTKD0gia/rsSMcrRHmJl+4Tbol6S+lWgdJ94E=",
		g.Sign("total_amount=100,transaction_uuid=11-201-13,product_code=EPAYTEST"))
}

func TestSign_Deterministic(t *testing.T) {
	g := testGateway()
	msg := "total_amount=20,transaction_uuid=abc-1,product_code=EPAYTEST"
	assert.Equal(t, g.Sign(msg), g.Sign(msg))
	assert.NotEqual(t, g.Sign(msg), g.Sign(msg+"x"))
}

func TestBuildRequest(t *testing.T) {
	g := testGateway()
	form, err := g.BuildRequest(context.Background(), "a1b2c3", decimal.RequireFromString("20.00"))
	require.NoError(t, err)

	assert.Equal(t, "a1b2c3-3f2c9a6e-0b7d-4f5e-9a1c-2d4b6e8f0a12", form.TransactionUUID)
	assert.Equal(t, "20", form.Amount)
	assert.Equal(t, form.Amount, form.TotalAmount)
	assert.Equal(t, "0", form.ProductDeliveryCharge)
	assert.Equal(t, "0", form.ProductServiceCharge)
	assert.Equal(t, "0", form.TaxAmount)
	assert.Equal(t, "EPAYTEST", form.ProductCode)
	assert.Equal(t, SignedFieldNames, form.SignedFieldNames)
	assert.Equal(t, "http://localhost:5000/api/esewa/success", form.SuccessURL)
	assert.Equal(t, "http://localhost:5000/api/esewa/failure", form.FailureURL)
	assert.Equal(t,
		g.Sign("total_amount=20,transaction_uuid=a1b2c3-3f2c9a6e-0b7d-4f5e-9a1c-2d4b6e8f0a12,product_code=EPAYTEST"),
		form.Signature)

	raw, err := json.Marshal(form)
	require.NoError(t, err)
	var keys map[string]string
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.Len(t, keys, 11)

	_, err = g.BuildRequest(context.Background(), "has-hyphen", decimal.NewFromInt(1))
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	_, err = g.BuildRequest(context.Background(), "a1", decimal.Zero)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestVerifyCallback_RoundTrip(t *testing.T) {
	ctx := context.Background()
	g := testGateway()
	form, err := g.BuildRequest(ctx, "a1b2c3", decimal.NewFromInt(1000))
	require.NoError(t, err)

	for name, enc := range map[string]*base64.Encoding{
		"std": base64.StdEncoding, "url": base64.URLEncoding, "raw url": base64.RawURLEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			fields := completeFields(form)
			fields["total_amount"] = "1,000.0"
			tx, err := g.VerifyCallback(ctx, gatewayCallback(t, g, fields, enc))
			require.NoError(t, err)
			assert.Equal(t, "a1b2c3", tx.OrderID)
			assert.Equal(t, form.TransactionUUID, tx.TransactionUUID)
			assert.Equal(t, "000AWEO", tx.TransactionCode)
			assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1000)))
		})
	}
}

func TestVerifyCallback_SpaceForPlus(t *testing.T) {
	ctx := context.Background()
	g := testGateway()
	form, err := g.BuildRequest(ctx, "o1", decimal.NewFromInt(5))
	require.NoError(t, err)

	data := gatewayCallback(t, g, completeFields(form), base64.StdEncoding)
	tx, err := g.VerifyCallback(ctx, strings.ReplaceAll(data, "+", " "))
	require.NoError(t, err)
	assert.Equal(t, "o1", tx.OrderID)
}

func TestVerifyCallback_Failures(t *testing.T) {
	ctx := context.Background()
	g := testGateway()
	form, err := g.BuildRequest(ctx, "o1", decimal.NewFromInt(20))
	require.NoError(t, err)

	tampered := completeFields(form)
	data := gatewayCallback(t, g, tampered, base64.StdEncoding)
	raw, _ := base64.StdEncoding.DecodeString(data)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded["total_amount"] = "1"
	raw, _ = json.Marshal(decoded)
	tamperedData := base64.StdEncoding.EncodeToString(raw)

	pending := completeFields(form)
	pending["status"] = "PENDING"

	unsignedAmount := completeFields(form)
	unsignedAmount["signed_field_names"] = "transaction_uuid,product_code"

	missing := completeFields(form)
	delete(missing, "total_amount")
	missing["signed_field_names"] = "transaction_uuid,product_code"

	forged := completeFields(form)
	forged["signature"] = "AAAA"

	cases := []struct {
		name string
		data string
		kind apperr.Kind
	}{
		{"not base64", "%%%", apperr.MalformedCallback},
		{"not json", base64.StdEncoding.EncodeToString([]byte("hello")), apperr.MalformedCallback},
		{"json null", base64.StdEncoding.EncodeToString([]byte("null")), apperr.MalformedCallback},
		{"empty", "", apperr.MalformedCallback},
		{"missing field", gatewayCallback(t, g, missing, base64.StdEncoding), apperr.MalformedCallback},
		{"not complete", gatewayCallback(t, g, pending, base64.StdEncoding), apperr.PaymentNotComplete},
		{"tampered amount", tamperedData, apperr.SignatureMismatch},
		{"forged signature", gatewayCallback(t, g, forged, base64.StdEncoding), apperr.SignatureMismatch},
		{"amount not signed", gatewayCallback(t, g, unsignedAmount, base64.StdEncoding), apperr.SignatureMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.VerifyCallback(ctx, tc.data)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 1,234.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1234.5")))

	_, err = ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestOrderIDFromTransaction(t *testing.T) {
	assert.Equal(t, "abc", OrderIDFromTransaction("abc-1-2-3"))
	assert.Equal(t, "abc", OrderIDFromTransaction("abc"))
}
