package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditLevel defines which bulk writes are audited.
type AuditLevel int

const (
	// AuditNone disables audit logging.
	AuditNone AuditLevel = iota
	// AuditFailures logs only failed writes and rejected statements.
	AuditFailures
	// AuditWrites logs every write.
	AuditWrites
)

// AuditEvent is one audited bulk write.
type AuditEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	User         string    `json:"user,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Kind         string    `json:"kind"` // upsert, insert_ignore, replace
	Table        string    `json:"table,omitempty"`
	BatchRows    int       `json:"batch_rows"`
	AffectedRows int64     `json:"affected_rows"`
	SQL          string    `json:"sql"`
	ParamsHash   string    `json:"params_hash,omitempty"` // SHA256, values never logged
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Duration     int64     `json:"duration_ms,omitempty"`
}

// WriteRecord is what the executor hands to the auditor after a write.
type WriteRecord struct {
	Kind         string
	Table        string
	SQL          string
	Params       []any
	BatchRows    int
	AffectedRows int64
	Err          error
	Duration     time.Duration
}

// Auditor writes audit events to a slog.Logger.
type Auditor struct {
	logger *slog.Logger
	level  AuditLevel
	now    func() time.Time
}

// NewAuditor creates a new audit logger. A nil logger disables auditing.
func NewAuditor(logger *slog.Logger, level AuditLevel) *Auditor {
	return &Auditor{
		logger: logger,
		level:  level,
		now:    time.Now,
	}
}

// LogWrite audits an executed write and returns the event that was logged.
// ok is false when the level filtered the write out.
func (a *Auditor) LogWrite(ctx context.Context, rec WriteRecord) (event AuditEvent, ok bool) {
	if !a.shouldLog(rec.Err != nil) {
		return AuditEvent{}, false
	}

	event = a.newEvent(ctx)
	event.Kind = rec.Kind
	event.Table = rec.Table
	event.BatchRows = rec.BatchRows
	event.AffectedRows = rec.AffectedRows
	event.SQL = rec.SQL
	event.ParamsHash = hashParams(rec.Params)
	event.Success = rec.Err == nil
	event.Duration = rec.Duration.Milliseconds()
	if rec.Err != nil {
		event.Error = rec.Err.Error()
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(ctx, level, "audit_event",
		slog.String("id", event.ID),
		slog.Time("timestamp", event.Timestamp),
		slog.String("user", event.User),
		slog.String("request_id", event.RequestID),
		slog.String("kind", event.Kind),
		slog.String("table", event.Table),
		slog.Int("batch_rows", event.BatchRows),
		slog.Int64("affected_rows", event.AffectedRows),
		slog.String("sql", event.SQL),
		slog.String("params_hash", event.ParamsHash),
		slog.Bool("success", event.Success),
		slog.String("error", event.Error),
		slog.Int64("duration_ms", event.Duration),
	)
	return event, true
}

// LogRejected audits a statement that was refused before execution, for
// example because an inlined fragment failed validation.
func (a *Auditor) LogRejected(ctx context.Context, kind, table string, err error) {
	if !a.shouldLog(true) {
		return
	}

	event := a.newEvent(ctx)
	a.logger.LogAttrs(ctx, slog.LevelWarn, "security_event",
		slog.String("id", event.ID),
		slog.String("event_type", "statement_rejected"),
		slog.Time("timestamp", event.Timestamp),
		slog.String("user", event.User),
		slog.String("request_id", event.RequestID),
		slog.String("kind", kind),
		slog.String("table", table),
		slog.String("error", err.Error()),
	)
}

func (a *Auditor) newEvent(ctx context.Context) AuditEvent {
	return AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		User:      GetUser(ctx),
		RequestID: GetRequestID(ctx),
	}
}

func (a *Auditor) shouldLog(failed bool) bool {
	if a == nil || a.logger == nil {
		return false
	}

	switch a.level {
	case AuditWrites:
		return true
	case AuditFailures:
		return failed
	default:
		return false
	}
}

// hashParams creates a SHA256 hash of parameters for the audit trail.
func hashParams(params []any) string {
	if len(params) == 0 {
		return ""
	}

	h := sha256.New()
	for _, param := range params {
		_, _ = fmt.Fprintf(h, "%v", param) // hash.Hash.Write never returns error
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contextKey string

const (
	userKey      contextKey = "bulkupsert:user"
	requestIDKey contextKey = "bulkupsert:request_id"
)

// WithUser adds the acting user to the context for audit logging.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithRequestID adds a request ID to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetUser retrieves the user from ctx.
func GetUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// GetRequestID retrieves the request ID from ctx.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
