package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("PDF_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.DBDriver)
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("expected low stock threshold 5, got %d", cfg.LowStockThreshold)
	}
	if cfg.PDFDir != "/tmp/invoices" {
		t.Errorf("expected /tmp/invoices, got %q", cfg.PDFDir)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Errorf("expected Asia/Kolkata, got %s", cfg.Location())
	}
	if cfg.Address() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Address())
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres without DATABASE_URL")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PDF_TIMEOUT", "5s")
	t.Setenv("PDF_CONCURRENCY", "0")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("INVOICE_NUMBERING", "DATED")
	t.Setenv("BILL_REMINDERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PDFTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.PDFTimeout)
	}
	if cfg.PDFConcurrency != 1 {
		t.Errorf("expected concurrency clamped to 1, got %d", cfg.PDFConcurrency)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.InvoiceNumbering != "dated" {
		t.Errorf("expected dated numbering, got %q", cfg.InvoiceNumbering)
	}
	if !cfg.BillReminders || cfg.ReminderInterval != 24*time.Hour {
		t.Errorf("expected daily bill reminders, got %v every %s", cfg.BillReminders, cfg.ReminderInterval)
	}
}

func TestValidateReminderInterval(t *testing.T) {
	base := Config{DBDriver: "sqlite", DataDir: "./data", JWTSecret: "x", InvoiceNumbering: "sequential", Timezone: "UTC"}

	for _, d := range []time.Duration{0, -time.Hour} {
		cfg := base
		cfg.BillReminders = true
		cfg.ReminderInterval = d
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for interval %s", d)
		}
	}

	cfg := base
	if err := cfg.Validate(); err != nil {
		t.Errorf("interval is not needed while reminders are off: %v", err)
	}
	cfg.BillReminders = true
	cfg.ReminderInterval = time.Hour
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
