// Package pricing computes GST-inclusive invoice lines. Prices are MRP
// (tax included); discount is taken off the MRP first and the tax is then
// extracted from what remains.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Line is one invoice line as entered.
type Line struct {
	Qty         float64
	UnitPrice   float64 // MRP, GST inclusive
	DiscountPct float64
	CGSTPct     float64
	SGSTPct     float64
	CostPrice   float64 // per unit, GST added at product creation

	// ManualAmount, when set, is the final line total typed by the user.
	// The discount is recomputed from it and DiscountPct is ignored.
	ManualAmount *float64
}

// Result is a priced line. Values are unrounded.
type Result struct {
	DiscountPct    float64
	Gross          float64
	DiscountAmount float64
	AfterDiscount  float64
	GSTRate        float64
	GSTAmount      float64
	BaseValue      float64
	CGSTAmount     float64
	SGSTAmount     float64
	LineTotal      float64
	Profit         float64
}

// Compute prices a line. A non-positive quantity or unit price yields a
// zero line.
func Compute(l Line) Result {
	if l.Qty <= 0 || l.UnitPrice <= 0 {
		return Result{DiscountPct: l.DiscountPct, GSTRate: l.CGSTPct + l.SGSTPct}
	}

	gstRate := l.CGSTPct + l.SGSTPct
	discountPct := l.DiscountPct
	if l.ManualAmount != nil {
		discountPct = ImpliedDiscount(*l.ManualAmount, l.UnitPrice, l.Qty, gstRate)
	}

	gross := l.UnitPrice * l.Qty
	discountAmount := gross * discountPct / 100
	afterDiscount := gross - discountAmount

	var gstAmount float64
	if gstRate != 0 {
		gstAmount = afterDiscount * gstRate / (100 + gstRate)
	}

	sellingPriceExclGST := afterDiscount / (1 + gstRate/100)

	return Result{
		DiscountPct:    discountPct,
		Gross:          gross,
		DiscountAmount: discountAmount,
		AfterDiscount:  afterDiscount,
		GSTRate:        gstRate,
		GSTAmount:      gstAmount,
		BaseValue:      afterDiscount - gstAmount,
		CGSTAmount:     gstAmount / 2,
		SGSTAmount:     gstAmount / 2,
		LineTotal:      afterDiscount,
		Profit:         (sellingPriceExclGST - l.CostPrice) * l.Qty,
	}
}

// ImpliedDiscount returns the discount percentage that makes a line of qty
// units at unitPrice total amount. Both sides are compared without tax;
// the result is clamped at zero.
func ImpliedDiscount(amount, unitPrice, qty, gstRate float64) float64 {
	base := unitPrice * qty
	if base <= 0 {
		return 0
	}
	taxFactor := 1 + gstRate/100
	amountExclTax := amount / taxFactor
	baseExclTax := base / taxFactor
	return math.Max(0, (baseExclTax-amountExclTax)/baseExclTax*100)
}

// Totals aggregates priced lines.
type Totals struct {
	Subtotal      float64
	TotalDiscount float64
	TotalTax      float64
	TotalAmount   float64
	TotalProfit   float64
}

// Add accumulates r into t.
func (t *Totals) Add(r Result) {
	t.Subtotal += r.Gross
	t.TotalDiscount += r.DiscountAmount
	t.TotalTax += r.GSTAmount
	t.TotalAmount += r.AfterDiscount
	t.TotalProfit += r.Profit
}

// Sum aggregates results.
func Sum(results []Result) Totals {
	var t Totals
	for _, r := range results {
		t.Add(r)
	}
	return t
}

// CostWithGST converts a supplier cost to the GST-inclusive cost basis stored
// on products.
func CostWithGST(cost, cgstPct, sgstPct float64) float64 {
	return cost + cost*(cgstPct+sgstPct)/100
}

// Round2 rounds a money value half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
