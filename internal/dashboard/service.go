package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/cache"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/tenant"
)

const (
	defaultSeriesDays = 31
	maxSeriesDays     = 366
)

type TopProduct struct {
	Name     string  `json:"name"`
	Sold     float64 `json:"sold"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Metrics summarises sales over a period together with the current catalog.
type Metrics struct {
	TotalSales    int64              `json:"totalSales"` // number of invoices
	TotalRevenue  float64            `json:"totalRevenue"`
	TotalProfit   float64            `json:"totalProfit"`
	TotalProducts int64              `json:"totalProducts"`
	LowStockItems []database.Product `json:"lowStockItems"`
	TopSelling    []TopProduct       `json:"topSelling"`
}

// Series holds per-day invoice and bill totals, one entry per label.
type Series struct {
	Labels    []string  `json:"labels"`
	SalesData []float64 `json:"salesData"`
	BillsData []float64 `json:"billsData"`
}

type Service struct {
	cache    cache.Cache
	ttl      time.Duration
	loc      *time.Location
	lowStock int
	topN     int
	now      func() time.Time
}

// NewService builds the aggregator. Products with quantity at or below
// lowStock are reported as low stock; topN bounds the best-seller list.
func NewService(c cache.Cache, ttl time.Duration, loc *time.Location, lowStock, topN int) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		cache:    c,
		ttl:      ttl,
		loc:      loc,
		lowStock: lowStock,
		topN:     topN,
		now:      time.Now,
	}
}

func keyPrefix(tenantKey string) string {
	return "dashboard:" + tenantKey + ":"
}

// Invalidate drops every cached result of the tenant.
func (s *Service) Invalidate(ctx context.Context, tenantKey string) {
	if err := s.cache.DeletePrefix(ctx, keyPrefix(tenantKey)); err != nil {
		log := logger.WithTenant("dashboard", tenantKey)
		log.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

// cached serves name from the cache, computing and storing it on a miss.
// Cache failures fall through to load.
func (s *Service) cached(ctx context.Context, t *tenant.Tenant, name string, dst interface{}, load func() error) error {
	key := keyPrefix(t.Key) + name
	log := logger.WithTenant("dashboard", t.Key)

	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
	}
	if found {
		return nil
	}

	if err := load(); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, dst, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
	return nil
}

// Today returns metrics over invoices created since local midnight.
func (s *Service) Today(ctx context.Context, t *tenant.Tenant) (*Metrics, error) {
	now := s.now()
	since := calendar.StartOfDay(now, s.loc).UTC()

	var m Metrics
	err := s.cached(ctx, t, "today:"+calendar.DayKey(now, s.loc), &m, func() error {
		return s.compute(ctx, t, &since, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AllTime returns metrics over every invoice of the tenant.
func (s *Service) AllTime(ctx context.Context, t *tenant.Tenant) (*Metrics, error) {
	var m Metrics
	err := s.cached(ctx, t, "all", &m, func() error {
		return s.compute(ctx, t, nil, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) compute(ctx context.Context, t *tenant.Tenant, since *time.Time, m *Metrics) error {
	var sales struct {
		Count   int64
		Revenue float64
		Profit  float64
	}
	q := t.Invoices.Query(ctx).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue, COALESCE(SUM(total_profit), 0) AS profit")
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	if err := q.Scan(&sales).Error; err != nil {
		return fmt.Errorf("sum invoices: %w", err)
	}

	m.TotalSales = sales.Count
	m.TotalRevenue = pricing.Round2(sales.Revenue)
	m.TotalProfit = pricing.Round2(sales.Profit)

	if err := t.Products.Query(ctx).Count(&m.TotalProducts).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}

	m.LowStockItems = []database.Product{}
	if err := t.Products.Query(ctx).
		Where("quantity <= ?", s.lowStock).
		Order("quantity ASC").
		Find(&m.LowStockItems).Error; err != nil {
		return fmt.Errorf("low stock: %w", err)
	}

	m.TopSelling = []TopProduct{}
	if err := t.Products.Query(ctx).
		Select("name, sold, quantity, price").
		Order("sold DESC").
		Limit(s.topN).
		Scan(&m.TopSelling).Error; err != nil {
		return fmt.Errorf("top selling: %w", err)
	}
	return nil
}

// ClampDays bounds a requested series length. Zero or negative asks for the
// default.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return defaultSeriesDays
	case days > maxSeriesDays:
		return maxSeriesDays
	default:
		return days
	}
}

// SalesParties buckets invoice totals by invoice date and bill amounts by
// bill date over the last days days, zero-filled.
func (s *Service) SalesParties(ctx context.Context, t *tenant.Tenant, days int) (*Series, error) {
	days = ClampDays(days)
	now := s.now()

	var series Series
	name := fmt.Sprintf("series:%d:%s", days, calendar.DayKey(now, s.loc))
	err := s.cached(ctx, t, name, &series, func() error {
		labels := calendar.LastDays(now, days, s.loc)
		start := calendar.StartOfDay(now, s.loc).AddDate(0, 0, 1-days).UTC()

		index := make(map[string]int, len(labels))
		for i, l := range labels {
			index[l] = i
		}
		series.Labels = labels
		series.SalesData = make([]float64, days)
		series.BillsData = make([]float64, days)

		var invoices []struct {
			InvoiceDate time.Time
			TotalAmount float64
		}
		if err := t.Invoices.Query(ctx).
			Select("invoice_date, total_amount").
			Where("invoice_date >= ?", start).
			Scan(&invoices).Error; err != nil {
			return fmt.Errorf("invoices by day: %w", err)
		}
		for _, inv := range invoices {
			if i, ok := index[calendar.DayKey(inv.InvoiceDate, s.loc)]; ok {
				series.SalesData[i] += inv.TotalAmount
			}
		}

		var bills []struct {
			BillDate time.Time
			Amount   float64
		}
		if err := t.DB.WithContext(ctx).Model(&database.Bill{}).
			Select("bill_date, amount").
			Where("bill_date >= ?", start).
			Scan(&bills).Error; err != nil {
			return fmt.Errorf("bills by day: %w", err)
		}
		for _, b := range bills {
			if i, ok := index[calendar.DayKey(b.BillDate, s.loc)]; ok {
				series.BillsData[i] += b.Amount
			}
		}

		for i := range labels {
			series.SalesData[i] = pricing.Round2(series.SalesData[i])
			series.BillsData[i] = pricing.Round2(series.BillsData[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &series, nil
}
