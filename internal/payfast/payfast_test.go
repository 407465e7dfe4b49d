package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func testClient(passphrase string) *Client {
	return NewClient(config.PayFastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  passphrase,
		Sandbox:     true,
		ReturnURL:   "https://shop.example.com/return",
		NotifyURL:   "https://api.example.com/api/payments/payfast/notify",
	})
}

func TestEncodeSkipsEmptyAndEscapes(t *testing.T) {
	f := Fields{
		{"merchant_id", "10000100"},
		{"cancel_url", ""},
		{"item_name", " Order AB12 "},
		{"email_address", "a+b@example.com"},
		{"signature", "ignored"},
	}
	assert.Equal(t, "merchant_id=10000100&item_name=Order+AB12&email_address=a%2Bb%40example.com", f.Encode())
}

func TestSign(t *testing.T) {
	f := Fields{{"merchant_id", "10000100"}, {"amount", "100.00"}}
	assert.Equal(t, md5hex("merchant_id=10000100&amount=100.00"), Sign(f, ""))
	assert.Equal(t, md5hex("merchant_id=10000100&amount=100.00&passphrase=jt7NOE43FZPn"), Sign(f, "jt7NOE43FZPn"))
}

func TestBuildForm(t *testing.T) {
	c := testClient("secret pass")
	order := &models.Order{PaymentReference: "3f1c2a9e-0000-4000-8000-000000000000", Total: 516.9}
	form := c.BuildForm(order, Buyer{FullName: "Thandi van der Merwe", Email: "thandi@example.com"})

	assert.Equal(t, SandboxURL, form.Action)
	assert.Equal(t, "POST", form.Method)
	assert.Equal(t, "516.90", form.Values["amount"])
	assert.Equal(t, "Thandi", form.Values["name_first"])
	assert.Equal(t, "van der Merwe", form.Values["name_last"])
	assert.Equal(t, "Order 3F1C2A9E", form.Values["item_name"])
	_, hasCancel := form.Values["cancel_url"]
	assert.False(t, hasCancel)

	names := make([]string, 0, len(form.Fields))
	var signed Fields
	for _, f := range form.Fields {
		names = append(names, f.Name)
		signed = append(signed, Field{f.Name, f.Value})
	}
	assert.Equal(t, []string{
		"merchant_id", "merchant_key", "return_url", "notify_url", "name_first", "name_last",
		"email_address", "m_payment_id", "amount", "item_name", "signature",
	}, names)
	assert.Equal(t, Sign(signed, "secret pass"), form.Values["signature"])

	live := NewClient(config.PayFastConfig{})
	assert.Equal(t, LiveURL, live.ProcessURL())
}

// itnBody posts pairs in order and signs the raw payload the way the gateway does.
func itnBody(passphrase string, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+"="+url.QueryEscape(pairs[i+1]))
	}
	payload := strings.Join(parts, "&")
	return payload + "&signature=" + md5hex(payload+"&passphrase="+passphrase)
}

func TestParseNotification(t *testing.T) {
	c := testClient("pp")
	body := itnBody("pp",
		"m_payment_id", "ref-1",
		"pf_payment_id", "1089250",
		"payment_status", "COMPLETE",
		"item_name", "Order REF-1",
		"amount_gross", "516.90",
		"amount_fee", "-11.89",
		"name_first", "",
		"merchant_id", "10000100",
	)

	n, err := c.ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", n.PaymentReference)
	assert.Equal(t, "1089250", n.ProviderPaymentID)
	assert.True(t, n.Complete())
	assert.NoError(t, VerifyAmount(n, 516.9))
	assert.ErrorIs(t, VerifyAmount(n, 500), ErrAmountMismatch)
}

func TestParseNotificationKnownSignature(t *testing.T) {
	c := testClient("pp")
	body := "m_payment_id=ref-1&pf_payment_id=1089250&payment_status=COMPLETE&item_name=Order+REF-1" +
		"&amount_gross=516.90&amount_fee=-11.89&name_first=Thandi&name_last=&email_address=thandi%40example.com" +
		"&custom_str1=&merchant_id=10000100&signature=42470488c660aa92d2d53d89bcea241e"

	n, err := c.ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", n.PaymentReference)
	assert.Equal(t, 516.9, n.AmountGross)

	_, err = c.ParseNotification(strings.Replace(body, "&custom_str1=", "", 1))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestEncodeNotificationKeepsBlanks(t *testing.T) {
	f := Fields{
		{"m_payment_id", "r"},
		{"name_last", ""},
		{"item_name", "Order AB12"},
		{"signature", "abc"},
		{"trailing", "x"},
	}
	assert.Equal(t, "m_payment_id=r&name_last=&item_name=Order+AB12", f.EncodeNotification())
	assert.Equal(t, md5hex("m_payment_id=r&name_last=&item_name=Order+AB12&passphrase=pp"), SignNotification(f, "pp"))
}

func TestParseNotificationRejects(t *testing.T) {
	c := testClient("pp")

	_, err := c.ParseNotification(itnBody("wrong", "m_payment_id", "r", "amount_gross", "1.00", "merchant_id", "10000100"))
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = c.ParseNotification("m_payment_id=r&amount_gross=1.00")
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = c.ParseNotification(itnBody("pp", "m_payment_id", "r", "amount_gross", "1.00", "merchant_id", "999"))
	assert.ErrorIs(t, err, ErrMerchantMismatch)

	_, err = c.ParseNotification(itnBody("pp", "amount_gross", "1.00", "merchant_id", "10000100"))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestParseOrderedKeepsOrder(t *testing.T) {
	f, err := ParseOrdered("b=2&a=hello+world&c=%40")
	require.NoError(t, err)
	require.Len(t, f, 3)
	assert.Equal(t, "b", f[0].Name)
	assert.Equal(t, "hello world", f.Get("a"))
	assert.Equal(t, "@", f.Get("c"))

	_, err = ParseOrdered("a=%zz")
	assert.Error(t, err)
}
