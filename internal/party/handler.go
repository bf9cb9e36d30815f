package party

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invalidator is told when a tenant's bills change.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantKey string)
}

type Handler struct {
	loc         *time.Location
	invalidator Invalidator
	logger      *activitylog.Logger
}

// NewHandler reads bill dates without a zone in loc.
func NewHandler(loc *time.Location, invalidator Invalidator) *Handler {
	return &Handler{
		loc:         loc,
		invalidator: invalidator,
		logger:      activitylog.NewLogger(),
	}
}

type CreatePartyRequest struct {
	PartyName   string `json:"partyName" binding:"required"`
	PartyNumber string `json:"partyNumber"`
	PartyGST    string `json:"partyGST"`
}

type CreateBillRequest struct {
	InvoiceNumber string   `json:"invoiceNumber" binding:"required"`
	Amount        *float64 `json:"amount" binding:"required"`
	BillDate      string   `json:"billDate" binding:"required"`
	DueDate       string   `json:"dueDate" binding:"required"`
}

type UpdateBillRequest struct {
	InvoiceNumber *string  `json:"invoiceNumber"`
	Amount        *float64 `json:"amount"`
	BillDate      *string  `json:"billDate"`
	DueDate       *string  `json:"dueDate"`
	Status        *string  `json:"status"`
}

func validStatus(s string) bool {
	return s == database.BillPaid || s == database.BillUnpaid
}

func (h *Handler) invalidate(c *gin.Context) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(c.Request.Context(), c.GetString("tenant_key"))
	}
}

// List returns all parties with their bills, newest first
func (h *Handler) List(c *gin.Context) {
	var parties []database.Party
	if err := middleware.Tenant(c).Parties.Query(c.Request.Context()).
		Preload("Bills", func(db *gorm.DB) *gorm.DB {
			return db.Order("bill_date DESC")
		}).
		Order("created_at DESC").
		Find(&parties).Error; err != nil {
		apperror.Respond(c, err, "Failed to fetch parties")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": parties})
}

// Create adds a new party
func (h *Handler) Create(c *gin.Context) {
	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.PartyName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Party name is required"})
		return
	}

	party := database.Party{
		PartyName:   strings.TrimSpace(req.PartyName),
		PartyNumber: strings.TrimSpace(req.PartyNumber),
		PartyGST:    strings.ToUpper(strings.TrimSpace(req.PartyGST)),
		Bills:       []database.Bill{},
	}

	if err := middleware.Tenant(c).Parties.Create(c.Request.Context(), &party); err != nil {
		apperror.Respond(c, err, "Failed to create party")
		return
	}

	h.logger.LogCreate(c, "party", party.ID, map[string]interface{}{
		"partyName": party.PartyName,
		"partyGST":  party.PartyGST,
	})

	c.JSON(http.StatusCreated, gin.H{"data": party})
}

// Delete removes a party together with its bills
func (h *Handler) Delete(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	party, err := findParty(ctx, t, c.Param("partyId"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch party")
		return
	}

	if err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("party_id = ?", party.ID).Delete(&database.Bill{}).Error; err != nil {
			return err
		}
		return tx.Delete(party).Error
	}); err != nil {
		apperror.Respond(c, err, "Failed to delete party")
		return
	}

	h.logger.LogDelete(c, "party", party.ID, map[string]interface{}{
		"partyName": party.PartyName,
	})
	h.invalidate(c)

	c.JSON(http.StatusOK, gin.H{"message": "Party deleted"})
}

// findBill loads a bill that belongs to the party in the path.
func findParty(ctx context.Context, t *tenant.Tenant, id string) (*database.Party, error) {
	party, err := t.Parties.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("party.findParty", "Party")
	}
	return party, apperror.Wrap("party.findParty", err)
}

func findBill(ctx context.Context, t *tenant.Tenant, partyID, billID string) (*database.Party, *database.Bill, error) {
	party, err := findParty(ctx, t, partyID)
	if err != nil {
		return nil, nil, err
	}

	bid, err := uuid.Parse(billID)
	if err != nil {
		return nil, nil, apperror.NotFound("party.findBill", "Bill")
	}

	var bill database.Bill
	err = t.DB.WithContext(ctx).Where("id = ? AND party_id = ?", bid, party.ID).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperror.NotFound("party.findBill", "Bill")
	}
	if err != nil {
		return nil, nil, err
	}
	return party, &bill, nil
}

// AddBill records a new unpaid bill for a party
func (h *Handler) AddBill(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoiceNumber, amount, billDate and dueDate are required"})
		return
	}

	billDate, ok := calendar.ParseDate(req.BillDate, h.loc)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill date"})
		return
	}
	dueDate, ok := calendar.ParseDate(req.DueDate, h.loc)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due date"})
		return
	}

	party, err := findParty(ctx, t, c.Param("partyId"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch party")
		return
	}

	bill := database.Bill{
		PartyID:       party.ID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Amount:        *req.Amount,
		BillDate:      billDate,
		DueDate:       dueDate,
		Status:        database.BillUnpaid,
	}
	if err := t.DB.WithContext(ctx).Create(&bill).Error; err != nil {
		apperror.Respond(c, err, "Failed to add bill")
		return
	}

	h.logger.LogCreate(c, "bill", bill.ID, map[string]interface{}{
		"partyId":       party.ID,
		"invoiceNumber": bill.InvoiceNumber,
		"amount":        bill.Amount,
	})
	h.invalidate(c)

	c.JSON(http.StatusCreated, gin.H{"data": bill})
}

// UpdateBill edits the fields present in the request
func (h *Handler) UpdateBill(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var req UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != nil && !validStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	_, bill, err := findBill(ctx, t, c.Param("partyId"), c.Param("billId"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch bill")
		return
	}
	old := *bill

	if req.InvoiceNumber != nil {
		bill.InvoiceNumber = strings.TrimSpace(*req.InvoiceNumber)
	}
	if req.Amount != nil {
		bill.Amount = *req.Amount
	}
	if req.BillDate != nil && *req.BillDate != "" {
		d, ok := calendar.ParseDate(*req.BillDate, h.loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill date"})
			return
		}
		bill.BillDate = d
	}
	if req.DueDate != nil && *req.DueDate != "" {
		d, ok := calendar.ParseDate(*req.DueDate, h.loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due date"})
			return
		}
		bill.DueDate = d
	}
	if req.Status != nil {
		bill.Status = *req.Status
	}

	if err := t.DB.WithContext(ctx).Save(bill).Error; err != nil {
		apperror.Respond(c, err, "Failed to update bill")
		return
	}

	h.logger.LogUpdate(c, "bill", bill.ID,
		map[string]interface{}{"invoiceNumber": old.InvoiceNumber, "amount": old.Amount, "status": old.Status},
		map[string]interface{}{"invoiceNumber": bill.InvoiceNumber, "amount": bill.Amount, "status": bill.Status},
	)
	h.invalidate(c)

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

// SetBillStatus marks a bill paid or unpaid. Without a status the current
// one is flipped.
func (h *Handler) SetBillStatus(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var req struct {
		Status string `json:"status"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Status != "" && !validStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	_, bill, err := findBill(ctx, t, c.Param("partyId"), c.Param("billId"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch bill")
		return
	}

	from := bill.Status
	switch {
	case req.Status != "":
		bill.Status = req.Status
	case bill.Status == database.BillPaid:
		bill.Status = database.BillUnpaid
	default:
		bill.Status = database.BillPaid
	}

	if err := t.DB.WithContext(ctx).Model(bill).Update("status", bill.Status).Error; err != nil {
		apperror.Respond(c, err, "Failed to update bill status")
		return
	}

	h.logger.LogStatus(c, "bill", bill.ID, from, bill.Status)
	h.invalidate(c)

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

// DeleteBill removes a bill from its party
func (h *Handler) DeleteBill(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	_, bill, err := findBill(ctx, t, c.Param("partyId"), c.Param("billId"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch bill")
		return
	}

	if err := t.DB.WithContext(ctx).Delete(bill).Error; err != nil {
		apperror.Respond(c, err, "Failed to delete bill")
		return
	}

	h.logger.LogDelete(c, "bill", bill.ID, map[string]interface{}{
		"invoiceNumber": bill.InvoiceNumber,
		"amount":        bill.Amount,
	})
	h.invalidate(c)

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted"})
}
