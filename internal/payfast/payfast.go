// Package payfast builds PayFast redirect forms and validates ITN callbacks.
package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const (
	SandboxURL = "https://sandbox.payfast.co.za/eng/process"
	LiveURL    = "https://www.payfast.co.za/eng/process"

	StatusComplete  = "COMPLETE"
	StatusCancelled = "CANCELLED"
	ProviderName    = "payfast"
)

var (
	ErrBadSignature     = errors.New("payfast: signature mismatch")
	ErrMerchantMismatch = errors.New("payfast: merchant id mismatch")
	ErrAmountMismatch   = errors.New("payfast: amount mismatch")
	ErrMissingField     = errors.New("payfast: required field missing")
)

// Field is an ordered key/value pair. Signatures depend on field order.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered field list.
type Fields []Field

// Get returns the first value named name.
func (f Fields) Get(name string) string {
	for _, kv := range f {
		if kv.Name == name {
			return kv.Value
		}
	}
	return ""
}

// Encode renders the signature payload: urlencoded key=value pairs joined by '&',
// skipping empty values and the signature field itself.
func (f Fields) Encode() string {
	var b strings.Builder
	for _, kv := range f {
		if kv.Name == "signature" {
			continue
		}
		v := strings.TrimSpace(kv.Value)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}

// EncodeNotification renders an ITN signature payload: every field posted before
// signature, in posted order, blank values included.
func (f Fields) EncodeNotification() string {
	var b strings.Builder
	for i, kv := range f {
		if kv.Name == "signature" {
			break
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Sign computes the MD5 signature of redirect form fields, appending the passphrase when set.
func Sign(fields Fields, passphrase string) string {
	return digest(fields.Encode(), passphrase)
}

// SignNotification computes the MD5 signature PayFast sends with an ITN.
func SignNotification(fields Fields, passphrase string) string {
	return digest(fields.EncodeNotification(), passphrase)
}

func digest(payload, passphrase string) string {
	if p := strings.TrimSpace(passphrase); p != "" {
		payload += "&passphrase=" + url.QueryEscape(p)
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ParseOrdered decodes an application/x-www-form-urlencoded body, keeping the
// order fields were sent in.
func ParseOrdered(body string) (Fields, error) {
	var out Fields
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}
		out = append(out, Field{Name: key, Value: val})
	}
	return out, nil
}

// Client holds merchant credentials and gateway URLs.
type Client struct {
	cfg config.PayFastConfig
}

// NewClient creates a PayFast client.
func NewClient(cfg config.PayFastConfig) *Client {
	return &Client{cfg: cfg}
}

// ProcessURL is the gateway form action.
func (c *Client) ProcessURL() string {
	if c.cfg.Sandbox {
		return SandboxURL
	}
	return LiveURL
}

// Buyer identifies the paying consultant on the gateway page.
type Buyer struct {
	FullName string
	Email    string
}

// BuildForm returns the signed redirect form for an order.
func (c *Client) BuildForm(order *models.Order, buyer Buyer) models.PaymentForm {
	first, last := splitName(buyer.FullName)
	fields := Fields{
		{"merchant_id", c.cfg.MerchantID},
		{"merchant_key", c.cfg.MerchantKey},
		{"return_url", c.cfg.ReturnURL},
		{"cancel_url", c.cfg.CancelURL},
		{"notify_url", c.cfg.NotifyURL},
		{"name_first", first},
		{"name_last", last},
		{"email_address", buyer.Email},
		{"m_payment_id", order.PaymentReference},
		{"amount", FormatAmount(order.Total)},
		{"item_name", "Order " + shortRef(order.PaymentReference)},
	}

	form := models.PaymentForm{
		Action: c.ProcessURL(),
		Method: "POST",
		Values: map[string]string{},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.Value)
		if v == "" {
			continue
		}
		form.Fields = append(form.Fields, models.PaymentField{Name: f.Name, Value: v})
		form.Values[f.Name] = v
	}
	sig := Sign(fields, c.cfg.Passphrase)
	form.Fields = append(form.Fields, models.PaymentField{Name: "signature", Value: sig})
	form.Values["signature"] = sig
	return form
}

// Notification is a verified ITN payload.
type Notification struct {
	PaymentReference  string
	ProviderPaymentID string
	PaymentStatus     string
	AmountGross       float64
	Fields            Fields
}

// Complete reports whether the gateway settled the payment.
func (n Notification) Complete() bool {
	return n.PaymentStatus == StatusComplete
}

// ParseNotification verifies signature and merchant of a raw ITN body.
func (c *Client) ParseNotification(body string) (*Notification, error) {
	fields, err := ParseOrdered(body)
	if err != nil {
		return nil, err
	}
	got := fields.Get("signature")
	if got == "" || !strings.EqualFold(got, SignNotification(fields, c.cfg.Passphrase)) {
		return nil, ErrBadSignature
	}
	if c.cfg.MerchantID != "" && fields.Get("merchant_id") != c.cfg.MerchantID {
		return nil, ErrMerchantMismatch
	}

	ref := fields.Get("m_payment_id")
	if ref == "" {
		return nil, fmt.Errorf("%w: m_payment_id", ErrMissingField)
	}
	amount, err := strconv.ParseFloat(fields.Get("amount_gross"), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount_gross", ErrMissingField)
	}
	return &Notification{
		PaymentReference:  ref,
		ProviderPaymentID: fields.Get("pf_payment_id"),
		PaymentStatus:     fields.Get("payment_status"),
		AmountGross:       amount,
		Fields:            fields,
	}, nil
}

// VerifyAmount checks the notified gross against the order total to the cent.
func VerifyAmount(n *Notification, total float64) error {
	if math.Abs(models.RoundMoney(n.AmountGross)-models.RoundMoney(total)) > 0.001 {
		return fmt.Errorf("%w: got %.2f want %.2f", ErrAmountMismatch, n.AmountGross, total)
	}
	return nil
}

// FormatAmount renders an amount with two decimals as PayFast expects.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(models.RoundMoney(v), 'f', 2, 64)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return strings.ToUpper(ref[:8])
	}
	return strings.ToUpper(ref)
}
