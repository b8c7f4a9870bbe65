package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Zhima-Mochi/honeyshop/internal/domain/cart"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/pricing"
)

var (
	ErrEmptyCart   = errors.New("checkout: cart is empty")
	ErrInvalidForm = errors.New("checkout: form url and field id are required")
)

// LinkBuilder renders a cart into a pre-filled URL of the external order form.
// It never performs a request; the form service submits when the shopper follows the link.
type LinkBuilder struct {
	baseURL string
	fieldID string
	printer *message.Printer
}

func NewLinkBuilder(baseURL, fieldID string) (*LinkBuilder, error) {
	baseURL = strings.TrimSpace(baseURL)
	fieldID = strings.TrimPrefix(strings.TrimSpace(fieldID), "entry.")
	if baseURL == "" || fieldID == "" {
		return nil, ErrInvalidForm
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("checkout: parse form url: %w", err)
	}
	return &LinkBuilder{
		baseURL: baseURL,
		fieldID: fieldID,
		printer: message.NewPrinter(language.Japanese),
	}, nil
}

// FieldName is the query parameter that carries the order summary.
func (b *LinkBuilder) FieldName() string {
	return "entry." + b.fieldID
}

// Build returns the handoff URL for lines.
func (b *LinkBuilder) Build(lines []cart.Line) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}
	text := b.Summary(pricing.Calculate(lines))

	sep := "?"
	if strings.Contains(b.baseURL, "?") {
		sep = "&"
	}
	return b.baseURL + sep + b.FieldName() + "=" + encodeComponent(text), nil
}

// Summary renders the human-readable order text sent to the form.
func (b *LinkBuilder) Summary(s pricing.Summary) string {
	var sb strings.Builder
	for _, l := range s.Lines {
		fmt.Fprintf(&sb, "%s × %d個 = %s\n", l.ProductName, l.Quantity, b.Yen(l.Total()))
	}
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "小計：%s\n", b.Yen(s.Subtotal))
	fmt.Fprintf(&sb, "送料：%s\n", b.Yen(s.ShippingFee))
	fmt.Fprintf(&sb, "合計：%s", b.Yen(s.Total))
	return sb.String()
}

// Yen formats an amount with thousands grouping, e.g. ¥3,000.
func (b *LinkBuilder) Yen(amount int64) string {
	return "¥" + b.printer.Sprintf("%d", amount)
}

// unreservedMarks restores the marks encodeURIComponent leaves alone but QueryEscape escapes.
var unreservedMarks = strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

// encodeComponent percent-encodes s the way encodeURIComponent does: only A-Z a-z 0-9 and
// -_.!~*'() stay literal, and spaces become %20.
func encodeComponent(s string) string {
	return unreservedMarks.Replace(url.QueryEscape(s))
}
