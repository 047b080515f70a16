package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const dateLayout = "02.01.2006"

// Formatter renders values the way they appear in exported workbooks.
type Formatter struct {
	printer  *message.Printer
	currency currency.Unit
	loc      *time.Location
}

// NewFormatter builds a formatter for a BCP-47 locale and an ISO 4217 code.
func NewFormatter(locale, currencyCode string, loc *time.Location) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: unit, loc: loc}, nil
}

// Money prints an amount with two fraction digits, locale grouping and the
// currency code, e.g. "1.234,50 RSD".
func (f *Formatter) Money(d decimal.Decimal) string {
	v := d.Round(2).InexactFloat64()
	return f.printer.Sprintf("%v %s",
		number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)),
		f.currency)
}

func (f *Formatter) Hours(d decimal.Decimal) string {
	return d.StringFixed(2) + " h"
}

func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format(dateLayout)
}

// YesNo prints the receipt flag.
func YesNo(b bool) string {
	if b {
		return "DA"
	}
	return "NE"
}
