package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model for all entities
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the ID in Go so sqlite and postgres behave alike.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Bill statuses
const (
	BillUnpaid = "unpaid"
	BillPaid   = "paid"
)

// User is an account. Users live in the shared accounts database; everything
// else lives in the owning tenant's database.
type User struct {
	BaseModel
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	GoogleID     string `gorm:"index" json:"-"`
	PasswordHash string `json:"-"` // empty for Google-only accounts
}

// Product represents a sellable catalog item
type Product struct {
	BaseModel
	Name      string  `gorm:"not null" json:"name"`
	Code      string  `gorm:"uniqueIndex;not null" json:"code"`
	HSN       string  `json:"hsn"`
	Price     float64 `gorm:"not null" json:"price"`      // MRP, GST inclusive
	CostPrice float64 `gorm:"default:0" json:"costPrice"` // stored with GST added
	CGST      float64 `gorm:"default:0" json:"cgst"`
	SGST      float64 `gorm:"default:0" json:"sgst"`
	Discount  float64 `gorm:"default:0" json:"discount"`
	Quantity  float64 `gorm:"default:0;index" json:"quantity"`
	Sold      float64 `gorm:"default:0" json:"sold"`
	Supplier  string  `json:"supplier"`
	ImageURL  string  `gorm:"type:text" json:"imageUrl"`
}

// InvoiceItem is a priced invoice line, frozen when the invoice is saved
type InvoiceItem struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"`
	CostPrice   float64 `json:"costPrice"`
	Discount    float64 `json:"discount"`
	CGST        float64 `json:"cgst"`
	SGST        float64 `json:"sgst"`
	Amount      float64 `json:"amount"`
	Profit      float64 `json:"profit"`
	Gross       float64 `json:"gross"`
	DiscountAmt float64 `json:"discountAmt"`
	BaseValue   float64 `json:"baseValue"`
	CGSTAmt     float64 `json:"cgstAmt"`
	SGSTAmt     float64 `json:"sgstAmt"`
	ItemTotal   float64 `json:"itemTotal"`
}

// Invoice is a sale to a customer, including a snapshot of the issuer profile
type Invoice struct {
	BaseModel
	InvoiceNumber  string                            `gorm:"uniqueIndex;not null" json:"invoiceNumber"`
	InvoiceDate    time.Time                         `gorm:"not null;index" json:"invoiceDate"`
	DueDate        *time.Time                        `json:"dueDate,omitempty"`
	PaymentTerms   string                            `json:"paymentTerms"`
	CustomerName   string                            `gorm:"not null" json:"customerName"`
	CustomerPhone  string                            `json:"customerPhone"`
	CompanyName    string                            `json:"companyName"`
	CompanyAddress string                            `json:"companyAddress"`
	CompanyPhone   string                            `json:"companyPhone"`
	CompanyLogo    string                            `gorm:"type:text" json:"companyLogo"`
	Items          datatypes.JSONSlice[InvoiceItem] `json:"items"`
	Subtotal       float64                           `json:"subtotal"`
	TotalDiscount  float64                           `json:"totalDiscount"`
	TotalTax       float64                           `json:"totalTax"`
	TotalAmount    float64                           `json:"totalAmount"`
	TotalProfit    float64                           `json:"totalProfit"`
	PDFPath        string                            `json:"-"`
}

// Profile is the issuer's company details, one row per tenant
type Profile struct {
	BaseModel
	CompanyName    string `json:"companyName"`
	CompanyAddress string `json:"companyAddress"`
	CompanyPhone   string `json:"companyPhone"`
	CompanyLogo    string `gorm:"type:text" json:"companyLogo"`
}

// Party is a customer or supplier tracked in the ledger
type Party struct {
	BaseModel
	PartyName   string `gorm:"not null" json:"partyName"`
	PartyNumber string `json:"partyNumber"`
	PartyGST    string `json:"partyGST"`
	Bills       []Bill `gorm:"foreignKey:PartyID;constraint:OnDelete:CASCADE" json:"bills"`
}

// Bill is an amount owed by or to a party. Bills are entered by hand and
// never derived from invoices.
type Bill struct {
	BaseModel
	PartyID       uuid.UUID `gorm:"type:uuid;not null;index" json:"partyId"`
	InvoiceNumber string    `gorm:"not null" json:"invoiceNumber"`
	Amount        float64   `gorm:"not null" json:"amount"`
	BillDate      time.Time `gorm:"not null;index" json:"billDate"`
	DueDate       time.Time `gorm:"not null" json:"dueDate"`
	Status        string    `gorm:"not null;default:'unpaid'" json:"status"`
}

// PurchaseItem is a line of a supplier purchase
type PurchaseItem struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Discount float64 `json:"discount"`
	CGST     float64 `json:"cgst"`
	SGST     float64 `json:"sgst"`
	Amount   float64 `json:"amount"`
}

// Purchase is stock bought from a supplier
type Purchase struct {
	BaseModel
	Supplier      string                             `json:"supplier"`
	Items         datatypes.JSONSlice[PurchaseItem] `json:"items"`
	Subtotal      float64                            `json:"subtotal"`
	TotalDiscount float64                            `json:"totalDiscount"`
	TotalTax      float64                            `json:"totalTax"`
	TotalAmount   float64                            `json:"totalAmount"`
	PurchaseDate  time.Time                          `gorm:"index" json:"purchaseDate"`
}

// ActivityLog is the tenant's audit trail of mutations
type ActivityLog struct {
	BaseModel
	Actor      string     `gorm:"not null" json:"actor"`
	Action     string     `gorm:"not null" json:"action"` // create, update, delete, status
	EntityType string     `json:"entityType"`             // invoice, product, party, bill, ...
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entityId"`
	Details    string     `gorm:"type:text" json:"details"`
	IPAddress  string     `json:"ipAddress"`
}

// MigrateAccounts migrates the shared accounts database
func MigrateAccounts(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

// MigrateTenant migrates one tenant's database
func MigrateTenant(db *gorm.DB) error {
	return db.AutoMigrate(
		&Product{},
		&Invoice{},
		&Profile{},
		&Party{},
		&Bill{},
		&Purchase{},
		&ActivityLog{},
	)
}
