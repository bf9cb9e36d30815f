package activitylog

import (
	"encoding/json"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger writes the audit trail into the database of the request's tenant
type Logger struct{}

// NewLogger creates a new activity logger
func NewLogger() *Logger {
	return &Logger{}
}

// LogActivity creates an activity log entry. Failures are logged and never
// fail the request that caused them.
func (l *Logger) LogActivity(c *gin.Context, action, entityType string, entityID *uuid.UUID, details interface{}) error {
	t := middleware.Tenant(c)
	if t == nil {
		return nil
	}

	detailsJSON := ""
	if details != nil {
		if jsonBytes, err := json.Marshal(details); err == nil {
			detailsJSON = string(jsonBytes)
		}
	}

	entry := database.ActivityLog{
		Actor:      t.Email,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		IPAddress:  c.ClientIP(),
	}

	if err := t.DB.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
		log := logger.WithTenant("activitylog", t.Key)
		log.Warn().Err(err).Str("action", action).Str("entity", entityType).Msg("failed to write activity log")
		return err
	}
	return nil
}

// LogCreate logs a create action
func (l *Logger) LogCreate(c *gin.Context, entityType string, entityID uuid.UUID, newData interface{}) error {
	return l.LogActivity(c, "create", entityType, &entityID, map[string]interface{}{
		"new": newData,
	})
}

// LogUpdate logs an update action with old and new values
func (l *Logger) LogUpdate(c *gin.Context, entityType string, entityID uuid.UUID, oldData, newData interface{}) error {
	return l.LogActivity(c, "update", entityType, &entityID, map[string]interface{}{
		"old": oldData,
		"new": newData,
	})
}

// LogDelete logs a delete action
func (l *Logger) LogDelete(c *gin.Context, entityType string, entityID uuid.UUID, oldData interface{}) error {
	return l.LogActivity(c, "delete", entityType, &entityID, map[string]interface{}{
		"deleted": oldData,
	})
}

// LogStatus logs a status change such as a bill marked paid
func (l *Logger) LogStatus(c *gin.Context, entityType string, entityID uuid.UUID, from, to string) error {
	return l.LogActivity(c, "status", entityType, &entityID, map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

// List returns the newest entries of the request's tenant
func (l *Logger) List(c *gin.Context, limit int) ([]database.ActivityLog, error) {
	t := middleware.Tenant(c)
	if t == nil {
		return nil, nil
	}
	var logs []database.ActivityLog
	err := t.DB.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
