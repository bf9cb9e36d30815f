package invoice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"gorm.io/gorm"
)

// Numberer picks the number of the next invoice of a tenant.
type Numberer interface {
	Next(ctx context.Context, t *tenant.Tenant) (string, error)
}

// NewNumberer returns the strategy named by INVOICE_NUMBERING.
func NewNumberer(strategy string) Numberer {
	if strategy == "dated" {
		return Dated{}
	}
	return Sequential{}
}

var (
	trailingDigits = regexp.MustCompile(`\d+$`)
	serverNumber   = regexp.MustCompile(`^INV-(\d+)$`)
)

// Sequential numbers invoices INV-01, INV-02, ... following the tenant's
// most recently created invoice. When that number is already taken, as after
// a hand-typed number, it continues after the highest INV-<n> instead.
type Sequential struct{}

func (Sequential) Next(ctx context.Context, t *tenant.Tenant) (string, error) {
	var last database.Invoice
	err := t.Invoices.Query(ctx).
		Select("invoice_number").
		Order("created_at DESC").
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NextAfter(""), nil
	}
	if err != nil {
		return "", err
	}

	candidate := NextAfter(last.InvoiceNumber)
	var count int64
	if err := t.Invoices.Query(ctx).Where("invoice_number = ?", candidate).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return candidate, nil
	}
	return highestAfter(ctx, t)
}

// highestAfter follows the largest INV-<n> number of the tenant.
func highestAfter(ctx context.Context, t *tenant.Tenant) (string, error) {
	var numbers []string
	if err := t.Invoices.Query(ctx).Where("invoice_number LIKE ?", "INV-%").Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}
	highest := 0
	for _, n := range numbers {
		m := serverNumber.FindStringSubmatch(n)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > highest {
			highest = v
		}
	}
	return fmt.Sprintf("INV-%02d", highest+1), nil
}

// NextAfter increments the trailing number of last. Numbers without
// trailing digits, and the empty string, restart at INV-01.
func NextAfter(last string) string {
	n := 0
	if m := trailingDigits.FindString(last); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			n = v
		}
	}
	return fmt.Sprintf("INV-%02d", n+1)
}

const datedAttempts = 8

// Dated numbers invoices INV-<yyyymmdd>-<4 random digits>, checking each
// candidate against existing invoices.
type Dated struct {
	Now func() time.Time
}

func (d Dated) Next(ctx context.Context, t *tenant.Tenant) (string, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	date := now().Format("20060102")
	for i := 0; i < datedAttempts; i++ {
		candidate := fmt.Sprintf("INV-%s-%d", date, 1000+rand.IntN(9000))

		var count int64
		if err := t.Invoices.Query(ctx).Where("invoice_number = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return fmt.Sprintf("INV-%d-%d", now().UnixNano(), rand.IntN(1000)), nil
}
