// Package audit is the Audit Log Sink. Writes are best effort: a failure is
// reported on the operational logger and never returned to the caller.
package audit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/auditlog"
)

// Recorder is what the services depend on.
type Recorder interface {
	Record(ctx context.Context, e models.AuditEntry)
}

type Sink struct {
	repo auditlog.Repository
	log  logging.Logger
	now  func() time.Time
}

func NewSink(repo auditlog.Repository, log logging.Logger) *Sink {
	return &Sink{repo: repo, log: log, now: time.Now}
}

// Record stamps e and appends it.
func (s *Sink) Record(ctx context.Context, e models.AuditEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	if _, err := s.repo.Append(ctx, &e); err != nil {
		s.log.Error(ctx, "audit write failed",
			"stream", string(e.Stream),
			"event", e.EventType,
			"actor_id", e.ActorID,
			"subject_id", e.SubjectID,
			"err", err)
	}
}

// Auth builds an entry on the authentication stream.
func Auth(event string, actorID, subjectID int64) models.AuditEntry {
	return models.AuditEntry{Stream: models.StreamAuth, EventType: event, ActorID: actorID, SubjectID: subjectID}
}

// Admin builds an entry on the administrative stream.
func Admin(event string, actorID, subjectID int64, change *models.AttributeChange) models.AuditEntry {
	return models.AuditEntry{Stream: models.StreamAdmin, EventType: event, ActorID: actorID, SubjectID: subjectID, Change: change}
}

// Operation builds an entry on the record-modification stream.
func Operation(event string, actorID, sourceID int64, change *models.AttributeChange) models.AuditEntry {
	return models.AuditEntry{Stream: models.StreamOperation, EventType: event, ActorID: actorID, SubjectID: sourceID, Change: change}
}
