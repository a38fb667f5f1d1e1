package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Digest is a merchant's earnings over a period
type Digest struct {
	MerchantName  string
	From, To      time.Time
	Currency      string
	Total         float64
	Days          []DigestLine
	TopPerformers []DigestLine
}

// DigestLine is one labelled amount
type DigestLine struct {
	Label  string
	Amount float64
}

// PeriodLabel renders the digest period, e.g. "Jan 6 - Jan 12, 2025"
func (d Digest) PeriodLabel() string {
	if d.From.Year() == d.To.Year() {
		return d.From.Format("Jan 2") + " - " + d.To.Format("Jan 2, 2006")
	}
	return d.From.Format("Jan 2, 2006") + " - " + d.To.Format("Jan 2, 2006")
}

type digestView struct {
	MerchantName  string
	Period        string
	Total         string
	Days          []lineView
	TopPerformers []namedView
}

type lineView struct {
	Label  string
	Amount string
}

type namedView struct {
	Name   string
	Amount string
}

func (d Digest) view() digestView {
	v := digestView{
		MerchantName: d.MerchantName,
		Period:       d.PeriodLabel(),
		Total:        d.money(d.Total),
	}
	if v.MerchantName == "" {
		v.MerchantName = "there"
	}
	for _, day := range d.Days {
		v.Days = append(v.Days, lineView{Label: day.Label, Amount: d.money(day.Amount)})
	}
	for _, p := range d.TopPerformers {
		v.TopPerformers = append(v.TopPerformers, namedView{Name: p.Label, Amount: d.money(p.Amount)})
	}
	return v
}

// money formats an amount to cents; earnings are summed as floats upstream
func (d Digest) money(amount float64) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	if d.Currency == "" || d.Currency == "USD" {
		return "$" + s
	}
	return s + " " + d.Currency
}
