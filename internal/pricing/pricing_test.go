package pricing

import (
	"math"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		line         Line
		validateFunc func(t *testing.T, r Result)
	}{
		{
			name: "discount then GST extraction",
			line: Line{Qty: 2, UnitPrice: 100, DiscountPct: 10, CGSTPct: 9, SGSTPct: 9},
			validateFunc: func(t *testing.T, r Result) {
				// gross 200, discount 20, after 180, gst 180*18/118
				checkMoney(t, "gross", r.Gross, 200)
				checkMoney(t, "discount", r.DiscountAmount, 20)
				checkMoney(t, "afterDiscount", r.AfterDiscount, 180)
				checkMoney(t, "gstAmount", r.GSTAmount, 27.46)
				checkMoney(t, "baseValue", r.BaseValue, 152.54)
				checkMoney(t, "cgst", r.CGSTAmount, 13.73)
				checkMoney(t, "sgst", r.SGSTAmount, 13.73)
				checkMoney(t, "lineTotal", r.LineTotal, 180)
				if r.GSTRate != 18 {
					t.Errorf("gstRate = %v, want 18", r.GSTRate)
				}
			},
		},
		{
			name: "profit compares tax-free selling price with cost",
			line: Line{Qty: 1, UnitPrice: 118, CGSTPct: 9, SGSTPct: 9, CostPrice: 80},
			validateFunc: func(t *testing.T, r Result) {
				// 118 / 1.18 = 100, profit = (100 - 80) * 1
				checkMoney(t, "profit", r.Profit, 20)
			},
		},
		{
			name: "profit scales with quantity",
			line: Line{Qty: 2, UnitPrice: 118, CGSTPct: 9, SGSTPct: 9, CostPrice: 80},
			validateFunc: func(t *testing.T, r Result) {
				// after = 236, excl = 200, profit = (200 - 80) * 2
				checkMoney(t, "profit", r.Profit, 240)
			},
		},
		{
			name: "zero GST skips extraction",
			line: Line{Qty: 3, UnitPrice: 50, DiscountPct: 0},
			validateFunc: func(t *testing.T, r Result) {
				checkMoney(t, "gstAmount", r.GSTAmount, 0)
				checkMoney(t, "baseValue", r.BaseValue, 150)
				checkMoney(t, "lineTotal", r.LineTotal, 150)
			},
		},
		{
			name: "zero quantity yields a zero line",
			line: Line{Qty: 0, UnitPrice: 100, DiscountPct: 10, CGSTPct: 9, SGSTPct: 9, CostPrice: 50},
			validateFunc: func(t *testing.T, r Result) {
				if r.Gross != 0 || r.LineTotal != 0 || r.Profit != 0 || r.GSTAmount != 0 {
					t.Errorf("expected zero line, got %+v", r)
				}
			},
		},
		{
			name: "negative price yields a zero line",
			line: Line{Qty: 2, UnitPrice: -5},
			validateFunc: func(t *testing.T, r Result) {
				if r.Gross != 0 || r.Profit != 0 {
					t.Errorf("expected zero line, got %+v", r)
				}
			},
		},
		{
			name: "manual amount overrides the discount",
			line: Line{Qty: 2, UnitPrice: 100, DiscountPct: 50, CGSTPct: 9, SGSTPct: 9, ManualAmount: ptr(180)},
			validateFunc: func(t *testing.T, r Result) {
				checkMoney(t, "discountPct", r.DiscountPct, 10)
				checkMoney(t, "lineTotal", r.LineTotal, 180)
			},
		},
		{
			name: "manual amount above gross clamps discount at zero",
			line: Line{Qty: 1, UnitPrice: 100, ManualAmount: ptr(150)},
			validateFunc: func(t *testing.T, r Result) {
				if r.DiscountPct != 0 {
					t.Errorf("discountPct = %v, want 0", r.DiscountPct)
				}
				checkMoney(t, "lineTotal", r.LineTotal, 100)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validateFunc(t, Compute(tt.line))
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	for _, qty := range []float64{0, 1, 2.5, 7} {
		for _, price := range []float64{0, 1, 99.99, 1250} {
			for _, disc := range []float64{0, 5, 12.5, 50, 100} {
				for _, gst := range []float64{0, 5, 12, 18, 28} {
					r := Compute(Line{Qty: qty, UnitPrice: price, DiscountPct: disc, CGSTPct: gst / 2, SGSTPct: gst / 2})
					if qty > 0 && price > 0 && math.Abs(r.Gross-price*qty) > 1e-9 {
						t.Fatalf("gross %v != price*qty for %v x %v", r.Gross, price, qty)
					}
					if r.AfterDiscount > r.Gross+1e-9 {
						t.Fatalf("afterDiscount %v > gross %v", r.AfterDiscount, r.Gross)
					}
					if r.GSTAmount > r.AfterDiscount+1e-9 {
						t.Fatalf("gstAmount %v > afterDiscount %v", r.GSTAmount, r.AfterDiscount)
					}
					if r.CGSTAmount != r.SGSTAmount || math.Abs(r.CGSTAmount-r.GSTAmount/2) > 1e-9 {
						t.Fatalf("uneven GST split %+v", r)
					}
				}
			}
		}
	}
}

func TestImpliedDiscountRoundTrip(t *testing.T) {
	for _, gst := range []float64{0, 5, 18, 28} {
		for _, disc := range []float64{0, 3.75, 10, 33.3, 99} {
			line := Line{Qty: 3, UnitPrice: 249.5, DiscountPct: disc, CGSTPct: gst / 2, SGSTPct: gst / 2}
			total := Compute(line).LineTotal

			got := ImpliedDiscount(total, line.UnitPrice, line.Qty, gst)
			if math.Abs(got-disc) > 1e-6 {
				t.Errorf("gst %v: recovered discount %v, want %v", gst, got, disc)
			}
		}
	}
}

func TestImpliedDiscountEdges(t *testing.T) {
	if got := ImpliedDiscount(100, 0, 5, 18); got != 0 {
		t.Errorf("zero base should give 0, got %v", got)
	}
	if got := ImpliedDiscount(500, 100, 2, 18); got != 0 {
		t.Errorf("amount above base should clamp to 0, got %v", got)
	}
}

func TestSum(t *testing.T) {
	results := []Result{
		Compute(Line{Qty: 2, UnitPrice: 100, DiscountPct: 10, CGSTPct: 9, SGSTPct: 9, CostPrice: 50}),
		Compute(Line{Qty: 1, UnitPrice: 50, CGSTPct: 2.5, SGSTPct: 2.5, CostPrice: 30}),
	}
	totals := Sum(results)

	checkMoney(t, "subtotal", totals.Subtotal, 250)
	checkMoney(t, "totalDiscount", totals.TotalDiscount, 20)
	checkMoney(t, "totalAmount", totals.TotalAmount, 230)
	checkMoney(t, "totalTax", totals.TotalTax, results[0].GSTAmount+results[1].GSTAmount)
	checkMoney(t, "totalProfit", totals.TotalProfit, results[0].Profit+results[1].Profit)
}

func TestCostWithGST(t *testing.T) {
	checkMoney(t, "cost", CostWithGST(100, 9, 9), 118)
	checkMoney(t, "cost without gst", CostWithGST(100, 0, 0), 100)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{27.457627, 27.46},
		{13.728813, 13.73},
		{152.542372, 152.54},
		{0.005, 0.01},
		{-1.235, -1.24},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func checkMoney(t *testing.T, field string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.005 {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func ptr(v float64) *float64 { return &v }
