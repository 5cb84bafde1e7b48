package wizard

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Default hourly rates, in currency units.
const (
	DefaultLectureRate  = 10000
	DefaultTutorialRate = 8000
	DefaultCurrency     = "FCFA"
)

// Rates are the fixed per-hour prices for lecture and tutorial hours.
type Rates struct {
	Lecture  float64
	Tutorial float64
}

// DefaultRates returns the standard pricing.
func DefaultRates() Rates {
	return Rates{Lecture: DefaultLectureRate, Tutorial: DefaultTutorialRate}
}

// Cost prices a single module.
func (r Rates) Cost(m Module) float64 {
	return m.LectureHours*r.Lecture + m.TutorialHours*r.Tutorial
}

// Totals aggregates a module selection.
type Totals struct {
	Count         int     `json:"count"`
	LectureHours  float64 `json:"lectureHours"`
	TutorialHours float64 `json:"tutorialHours"`
	Hours         float64 `json:"hours"`
	Cost          float64 `json:"cost"`
}

// Sum totals the given modules.
func (r Rates) Sum(modules []Module) Totals {
	t := Totals{Count: len(modules)}
	for _, m := range modules {
		t.LectureHours += m.LectureHours
		t.TutorialHours += m.TutorialHours
		t.Cost += r.Cost(m)
	}
	t.Hours = t.LectureHours + t.TutorialHours
	return t
}

// Money formats amounts rounded to the unit with French digit grouping.
type Money struct {
	printer  *message.Printer
	currency string
}

// NewMoney builds a formatter for the given currency label.
func NewMoney(currency string) Money {
	return Money{printer: message.NewPrinter(language.French), currency: currency}
}

// Format renders "12 345 FCFA"; the currency is omitted when empty.
func (m Money) Format(amount float64) string {
	s := m.Amount(amount)
	if m.currency == "" {
		return s
	}
	return s + " " + m.currency
}

// Amount renders the rounded number without currency.
func (m Money) Amount(amount float64) string {
	p := m.printer
	if p == nil {
		p = message.NewPrinter(language.French)
	}
	return p.Sprintf("%d", int64(math.Round(amount)))
}

// FormatHours renders hours with one decimal.
func FormatHours(h float64) string {
	return fmt.Sprintf("%.1f", h)
}
