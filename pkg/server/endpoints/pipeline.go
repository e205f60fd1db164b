package endpoints

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/audit"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
)

// pipeline carries the collaborators of run.
type pipeline struct {
	authz    *authz.Engine
	activity *activity.Recorder
	audit    func(ctx context.Context, event audit.Event)
	logger   logging.Logger
}

func newPipeline(s *server.Server) *pipeline {
	return &pipeline{
		authz:    s.Authz,
		activity: s.Activity,
		audit:    s.AuditLog,
		logger:   s.Logger,
	}
}

// record describes the activity entry documenting a successful step.
type record struct {
	Action       model.Action
	ResourceType model.ResourceType
	ResourceID   int64
	Details      string
}

// step is one authorize, mutate, record sequence. An empty Action skips
// authorization; a nil Record, or a Record returning nil, skips recording.
type step[T any] struct {
	Action   authz.Action
	Resource authz.Resource
	Mutate   func(ctx context.Context) (T, error)
	Record   func(result T) *record
}

// run authorizes the caller, performs the mutation and, only once it has
// succeeded, appends the activity entry. It stops at the first failing stage.
func run[T any](ctx context.Context, p *pipeline, id *identity.Identity, st step[T]) (T, error) {
	var zero T

	if st.Action != "" {
		decision, err := p.authz.Authorize(ctx, id.Actor(), st.Action, st.Resource)
		if err != nil {
			return zero, err
		}
		if decision != authz.Allow {
			return zero, p.deny(ctx, id, st.Action, st.Resource)
		}
	}

	result, err := st.Mutate(ctx)
	if err != nil {
		return zero, err
	}

	if st.Record == nil {
		return result, nil
	}
	rec := st.Record(result)
	if rec == nil {
		return result, nil
	}
	if _, err := p.activity.Record(ctx, id.UserID(), rec.Action, rec.ResourceType, rec.ResourceID, rec.Details); err != nil {
		return zero, err
	}
	return result, nil
}

// authorize runs only the authorization stage, for reads that record nothing.
func (p *pipeline) authorize(ctx context.Context, id *identity.Identity, action authz.Action, resource authz.Resource) error {
	_, err := run(ctx, p, id, step[struct{}]{
		Action:   action,
		Resource: resource,
		Mutate:   func(context.Context) (struct{}, error) { return struct{}{}, nil },
	})
	return err
}

// deny writes the denial to the audit log and returns errForbidden.
func (p *pipeline) deny(ctx context.Context, id *identity.Identity, action authz.Action, resource authz.Resource) error {
	p.audit(ctx, audit.DeniedEvent{
		UserID:       id.UserID(),
		Action:       string(action),
		ResourceType: resource.Type,
		ResourceID:   resource.ID,
		ClientIP:     id.ClientIP(),
	})
	return errForbidden
}
