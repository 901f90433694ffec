// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/userz/internal/app/store/audit"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for password verification and password change events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for account changes (create, delete, name, email, contacts).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// Source is recorded on every event (e.g. "cli").
	Source string
}

// ValidSetting reports whether s is one of the accepted destination settings.
func ValidSetting(s string) bool {
	switch s {
	case "all", "db", "log", "off":
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil when no setting uses "db" or "all".
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_id", event.EventID),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}
	if event.Source != "" {
		fields = append(fields, zap.String("source", event.Source))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	// Determine which config setting applies based on event category
	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all" // Default to logging everything for unknown categories
	}

	// Check if logging is disabled for this category
	if setting == "off" || setting == "" {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Source == "" {
		event.Source = l.config.Source
	}

	// Log to zap if configured
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	// Log to MongoDB if configured
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// PasswordVerified logs a successful password check.
func (l *Logger) PasswordVerified(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordVerified,
		UserID:    &userID,
		Subject:   username,
		Success:   true,
	})
}

// PasswordMismatch logs a password check that did not match.
func (l *Logger) PasswordMismatch(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordMismatch,
		UserID:        &userID,
		Subject:       username,
		Success:       false,
		FailureReason: "wrong password",
	})
}

// PasswordUnknownUser logs a password check against a username that does not exist.
func (l *Logger) PasswordUnknownUser(ctx context.Context, attemptedUsername string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordUnknownUser,
		Subject:       attemptedUsername,
		Success:       false,
		FailureReason: "user not found",
	})
}

// PasswordVerifyFault logs a verification that failed because of a bad digest.
func (l *Logger) PasswordVerifyFault(ctx context.Context, userID primitive.ObjectID, username string, cause error) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordVerifyFault,
		UserID:        &userID,
		Subject:       username,
		Success:       false,
		FailureReason: cause.Error(),
	})
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    &userID,
		Success:   true,
	})
}

// PasswordChangeRejected logs a password change refused because the current password was wrong.
func (l *Logger) PasswordChangeRejected(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventPasswordChangeRejected,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong current password",
	})
}

// --- Admin Events ---

// UserCreated logs account creation.
func (l *Logger) UserCreated(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    &userID,
		Subject:   username,
		Success:   true,
	})
}

// UserDeleted logs account deletion.
func (l *Logger) UserDeleted(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeleted,
		UserID:    &userID,
		Subject:   username,
		Success:   true,
	})
}

// NameChanged logs a change to the structured name.
func (l *Logger) NameChanged(ctx context.Context, userID primitive.ObjectID, oldName, newName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventNameChanged,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"old_name": oldName,
			"new_name": newName,
		},
	})
}

// EmailChanged logs an email change.
func (l *Logger) EmailChanged(ctx context.Context, userID primitive.ObjectID, oldEmail, newEmail string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventEmailChanged,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"old_email": oldEmail,
			"new_email": newEmail,
		},
	})
}

// ContactAdded logs a contact being added.
func (l *Logger) ContactAdded(ctx context.Context, userID, contactID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventContactAdded,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"contact_id": contactID.Hex(),
		},
	})
}

// ContactRemoved logs a contact being removed.
func (l *Logger) ContactRemoved(ctx context.Context, userID, contactID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventContactRemoved,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"contact_id": contactID.Hex(),
		},
	})
}
