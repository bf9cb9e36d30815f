package reminder

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/email"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"gorm.io/gorm"
)

// Days before the due date on which an unpaid bill is mentioned.
var reminderDays = []int{3, 1, 0}

// Mailer delivers bill reminder mails.
type Mailer interface {
	IsConfigured() bool
	SendBillReminder(ctx context.Context, m email.BillReminderMail) error
}

// Resolver opens a tenant by owner email.
type Resolver interface {
	Resolve(ctx context.Context, email string) (*tenant.Tenant, error)
}

// Scheduler mails every account a digest of unpaid bills falling due.
type Scheduler struct {
	db      *gorm.DB
	tenants Resolver
	mailer  Mailer
	loc     *time.Location
	now     func() time.Time
}

func NewScheduler(db *gorm.DB, tenants Resolver, mailer Mailer, loc *time.Location) *Scheduler {
	return &Scheduler{db: db, tenants: tenants, mailer: mailer, loc: loc, now: time.Now}
}

// Start runs the scheduler right away and then every interval until ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	log := logger.WithComponent("reminder")
	if interval <= 0 {
		log.Error().Dur("interval", interval).Msg("bill reminder interval must be positive, scheduler not started")
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			if sent, err := s.Run(ctx); err != nil {
				log.Error().Err(err).Msg("bill reminder run failed")
			} else {
				log.Info().Int("sent", sent).Msg("bill reminders sent")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("bill reminder scheduler started")
}

// Run sends one digest per account with bills due today, tomorrow or in
// three days. It returns how many mails went out.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	log := logger.WithComponent("reminder")
	if !s.mailer.IsConfigured() {
		log.Debug().Msg("email not configured, skipping bill reminders")
		return 0, nil
	}

	var users []database.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		bills, err := s.DueBills(ctx, u.Email)
		if err != nil {
			log.Error().Err(err).Str("email", u.Email).Msg("listing due bills")
			continue
		}
		if len(bills) == 0 {
			continue
		}
		if err := s.mailer.SendBillReminder(ctx, email.BillReminderMail{To: u.Email, Name: u.Name, Bills: bills}); err != nil {
			log.Error().Err(err).Str("email", u.Email).Msg("sending bill reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// DueBills lists the account's unpaid bills that fall on a reminder day,
// soonest first.
func (s *Scheduler) DueBills(ctx context.Context, owner string) ([]email.DueBill, error) {
	t, err := s.tenants.Resolve(ctx, owner)
	if err != nil {
		return nil, err
	}

	today := calendar.StartOfDay(s.now(), s.loc)
	horizon := today.AddDate(0, 0, reminderDays[0]+1)

	var bills []database.Bill
	err = t.DB.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?", database.BillUnpaid, today.UTC(), horizon.UTC()).
		Order("due_date ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, nil
	}

	var parties []database.Party
	if err := t.DB.WithContext(ctx).Find(&parties).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(parties))
	for _, p := range parties {
		names[p.ID.String()] = p.PartyName
	}

	var out []email.DueBill
	for _, b := range bills {
		left := daysBetween(today, calendar.StartOfDay(b.DueDate, s.loc))
		if !isReminderDay(left) {
			continue
		}
		out = append(out, email.DueBill{
			PartyName:     names[b.PartyID.String()],
			InvoiceNumber: b.InvoiceNumber,
			Amount:        strconv.FormatFloat(b.Amount, 'f', 2, 64),
			DueDate:       calendar.DayKey(b.DueDate, s.loc),
			DaysLeft:      left,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out, nil
}

func daysBetween(from, to time.Time) int {
	// dates, not durations, so DST shifts do not matter
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func isReminderDay(n int) bool {
	for _, d := range reminderDays {
		if d == n {
			return true
		}
	}
	return false
}
