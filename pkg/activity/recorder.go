// Package activity records the append-only audit trail of keyvault and reads
// it back enriched with the acting user and the referenced resource.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// Sink receives a copy of every recorded entry, e.g. the syslog audit logger.
type Sink interface {
	Emit(ctx context.Context, entry model.ActivityLog) error
}

// UserRef is the snapshot of the acting user attached at read time.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ResourceRef is the snapshot of the referenced resource attached at read
// time. Name holds the username for user resources.
type ResourceRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProjectID int64  `json:"projectId,omitempty"`
}

// Entry is an activity log row with its read-time enrichment. User and
// Resource are nil when they no longer resolve.
type Entry struct {
	model.ActivityLog
	User     *UserRef     `json:"user,omitempty"`
	Resource *ResourceRef `json:"resource,omitempty"`
}

// Recorder appends and reads activity log entries.
type Recorder struct {
	activity store.ActivityStore
	users    store.UsersStore
	projects store.ProjectsStore
	secrets  store.SecretsStore
	sink     Sink
	now      func() time.Time
	logger   logging.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSink mirrors every recorded entry to sink.
func WithSink(sink Sink) Option {
	return func(r *Recorder) {
		r.sink = sink
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func NewRecorder(activity store.ActivityStore, users store.UsersStore, projects store.ProjectsStore, secrets store.SecretsStore, opts ...Option) *Recorder {
	r := &Recorder{
		activity: activity,
		users:    users,
		projects: projects,
		secrets:  secrets,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry stamped with the server clock. Callers invoke it
// only after the operation it documents has succeeded.
func (r *Recorder) Record(ctx context.Context, actorID int64, action model.Action, resourceType model.ResourceType, resourceID int64, details string) (*model.ActivityLog, error) {
	entry := &model.ActivityLog{
		UserID:       actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Timestamp:    r.now().UTC(),
	}
	if err := r.activity.AppendActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	metrics.RecordActivity(string(action), string(resourceType))

	if r.sink != nil {
		if err := r.sink.Emit(ctx, *entry); err != nil {
			r.logger.Warn(ctx, "activity sink failed", "activity_id", entry.ID, "error", err)
		}
	}
	return entry, nil
}

// GetLogs returns the most recent entries across all users.
func (r *Recorder) GetLogs(ctx context.Context, limit int) ([]Entry, error) {
	return r.list(ctx, store.ActivityFilter{Limit: limit})
}

// GetUserLogs returns the most recent entries performed by userID.
func (r *Recorder) GetUserLogs(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	return r.list(ctx, store.ActivityFilter{UserID: &userID, Limit: limit})
}

// GetProjectLogs returns entries about the project itself and about secrets
// currently in it. History of deleted secrets is not included.
func (r *Recorder) GetProjectLogs(ctx context.Context, projectID int64, limit int) ([]Entry, error) {
	return r.list(ctx, store.ActivityFilter{ProjectID: &projectID, Limit: limit})
}

func (r *Recorder) list(ctx context.Context, filter store.ActivityFilter) ([]Entry, error) {
	logs, err := r.activity.ListActivity(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return r.enrich(ctx, logs), nil
}
