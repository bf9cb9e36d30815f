package tenant

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrClosed is returned by Resolve after Close.
var ErrClosed = errors.New("tenant registry closed")

// Tenant is the set of data-access handles bound to one tenant's database.
type Tenant struct {
	Key   string
	Email string
	DB    *gorm.DB

	Products  Collection[database.Product]
	Invoices  Collection[database.Invoice]
	Profiles  Collection[database.Profile]
	Parties   Collection[database.Party]
	Purchases Collection[database.Purchase]

	release func() error
}

func newTenant(key, email string, db *gorm.DB, release func() error) *Tenant {
	return &Tenant{
		Key:       key,
		Email:     email,
		DB:        db,
		Products:  Collection[database.Product]{db: db},
		Invoices:  Collection[database.Invoice]{db: db},
		Profiles:  Collection[database.Profile]{db: db},
		Parties:   Collection[database.Party]{db: db},
		Purchases: Collection[database.Purchase]{db: db},
		release:   release,
	}
}

type entry struct {
	once   sync.Once
	tenant *Tenant
	err    error
	ready  bool // guarded by Registry.mu
}

// Registry maps tenant keys to their handles. Each tenant is provisioned and
// migrated once, on first Resolve; Close releases every tenant.
type Registry struct {
	driver Driver

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func NewRegistry(driver Driver) *Registry {
	return &Registry{
		driver:  driver,
		entries: make(map[string]*entry),
	}
}

// Resolve returns the handles for email, provisioning the tenant's storage
// on first use. Repeated calls with the same email return the same Tenant.
func (r *Registry) Resolve(ctx context.Context, email string) (*Tenant, error) {
	key, err := Key(email)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.tenant, e.err = r.open(ctx, key, NormalizeEmail(email))
	})

	if e.err != nil {
		// forget the failed attempt so the next request retries
		r.mu.Lock()
		if r.entries[key] == e {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		return nil, e.err
	}

	r.mu.Lock()
	e.ready = true
	r.mu.Unlock()
	return e.tenant, nil
}

func (r *Registry) open(ctx context.Context, key, email string) (*Tenant, error) {
	log := logger.WithTenant("tenant", key)

	db, release, err := r.driver.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateTenant(db.WithContext(ctx)); err != nil {
		_ = release()
		return nil, err
	}

	metrics.TenantsOpen.Inc()
	log.Info().Msg("tenant provisioned")
	return newTenant(key, email, db, release), nil
}

// Keys lists the provisioned tenant keys.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.entries))
	for k, e := range r.entries {
		if e.ready {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Close releases every tenant. Resolve fails afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for k, e := range r.entries {
		if e.ready {
			if err := e.tenant.release(); err != nil {
				errs = append(errs, err)
			}
			metrics.TenantsOpen.Dec()
		}
		delete(r.entries, k)
	}
	r.closed = true
	return errors.Join(errs...)
}

// Collection is a typed handle on one tenant table.
type Collection[T any] struct {
	db *gorm.DB
}

// Query starts a statement on the collection's table.
func (c Collection[T]) Query(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Model(new(T))
}

// Get loads a row by id. A malformed id reports gorm.ErrRecordNotFound.
func (c Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var v T
	if err := c.db.WithContext(ctx).Where("id = ?", uid).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns every row in the given order, e.g. "created_at DESC".
func (c Collection[T]) List(ctx context.Context, order string) ([]T, error) {
	var out []T
	if err := c.db.WithContext(ctx).Order(order).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (c Collection[T]) Create(ctx context.Context, v *T) error {
	return c.db.WithContext(ctx).Create(v).Error
}

func (c Collection[T]) Save(ctx context.Context, v *T) error {
	return c.db.WithContext(ctx).Save(v).Error
}

func (c Collection[T]) Delete(ctx context.Context, v *T) error {
	return c.db.WithContext(ctx).Delete(v).Error
}
