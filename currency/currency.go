// Package currency converts Flower amounts into fiat currencies and formats
// them for the dashboard cards.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/hazyhaar/farmdash/horosafe"
)

// Currency is a display currency.
type Currency string

const (
	Flower Currency = "Flower"
	USD    Currency = "USD"
	BRL    Currency = "BRL"
)

// Default is used when no preference was saved.
const Default = Flower

// All lists the currencies in display order.
var All = []Currency{Flower, USD, BRL}

type style struct {
	symbol string
	locale language.Tag
	flag   string
}

var styles = map[Currency]style{
	Flower: {symbol: "Flower", locale: language.AmericanEnglish, flag: `<span class="fi fi-flower me-1"></span>`},
	USD:    {symbol: "US$", locale: language.AmericanEnglish, flag: `<span class="fi fi-us me-2"></span>`},
	BRL:    {symbol: "R$", locale: language.BrazilianPortuguese, flag: `<span class="fi fi-br me-2"></span>`},
}

// Parse resolves a currency code, case-insensitively.
func Parse(s string) (Currency, error) {
	for _, c := range All {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("currency: unknown currency %q", s)
}

// Symbol returns the currency's display symbol.
func (c Currency) Symbol() string { return styles[c].symbol }

// Rates is the exchange table served by /api/exchange-rates. SFL maps a
// lowercase currency code to the value of one Flower in that currency.
type Rates struct {
	SFL map[string]float64 `json:"sfl"`
}

// Formatter renders an amount in every supported currency.
type Formatter interface {
	GenerateHTML(amount float64, prefix string) string
}

// Converter converts and formats Flower amounts. It is immutable once built.
type Converter struct {
	rates Rates
}

// NewConverter creates a Converter over rates.
func NewConverter(rates Rates) *Converter {
	return &Converter{rates: rates}
}

// Convert returns amount in the target currency. ok is false when the rate
// for a fiat currency is missing.
func (c *Converter) Convert(amount float64, to Currency) (value float64, ok bool) {
	if to == Flower || c.rates.SFL == nil {
		return amount, true
	}
	rate, ok := c.rates.SFL[strings.ToLower(string(to))]
	if !ok {
		return 0, false
	}
	return amount * rate, true
}

// Format formats an already converted value. Fiat values below one cent
// keep four decimals so they do not collapse to zero.
func (c *Converter) Format(value float64, cur Currency) string {
	st, ok := styles[cur]
	if !ok {
		st = styles[Default]
		cur = Default
	}
	digits := 2
	if cur != Flower && value > 0 && value < 0.01 {
		digits = 4
	}
	p := message.NewPrinter(st.locale)
	s := p.Sprint(number.Decimal(value, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
	if cur == Flower {
		return s + " " + st.symbol
	}
	return st.symbol + " " + s
}

// FormatValue converts and formats amount, or returns "N/A" when the rate
// is missing.
func (c *Converter) FormatValue(amount float64, to Currency) string {
	v, ok := c.Convert(amount, to)
	if !ok {
		return "N/A"
	}
	return c.Format(v, to)
}

// GenerateHTML renders amount in every currency, one span each, so the page
// can switch the visible one without recomputing.
func (c *Converter) GenerateHTML(amount float64, prefix string) string {
	var b strings.Builder
	b.WriteString(`<span class="currency-container">`)
	for _, cur := range All {
		fmt.Fprintf(&b, `<span class="currency-value-display currency-%s">%s%s%s</span>`,
			strings.ToLower(string(cur)), styles[cur].flag, prefix, c.FormatValue(amount, cur))
	}
	b.WriteString(`</span>`)
	return b.String()
}

// Fetch loads the exchange table from url and builds a Converter.
func Fetch(ctx context.Context, client *http.Client, url string) (*Converter, error) {
	if err := horosafe.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("currency: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("currency: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("currency: HTTP %d from %s: %s", resp.StatusCode, url, string(body))
	}

	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("currency: read rates: %w", err)
	}
	var rates Rates
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("currency: decode rates: %w", err)
	}
	if rates.SFL == nil {
		return nil, fmt.Errorf("currency: rates from %s have no sfl table", url)
	}
	return NewConverter(rates), nil
}
