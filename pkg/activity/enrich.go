package activity

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// enrich attaches user and resource snapshots with one bulk lookup per
// entity type. Lookup failures are logged and leave the fields empty.
func (r *Recorder) enrich(ctx context.Context, logs []model.ActivityLog) []Entry {
	userIDs := newIDSet()
	projectIDs := newIDSet()
	secretIDs := newIDSet()

	for _, l := range logs {
		userIDs.add(l.UserID)
		switch l.ResourceType {
		case model.ResourceProject:
			projectIDs.add(l.ResourceID)
		case model.ResourceSecret:
			secretIDs.add(l.ResourceID)
		case model.ResourceUser:
			userIDs.add(l.ResourceID)
		}
	}

	users, err := r.users.GetUsersByIDs(ctx, userIDs.ids)
	if err != nil {
		r.logger.Warn(ctx, "activity enrichment: user lookup failed", "error", err)
	}
	projects, err := r.projects.GetProjectsByIDs(ctx, projectIDs.ids)
	if err != nil {
		r.logger.Warn(ctx, "activity enrichment: project lookup failed", "error", err)
	}
	secrets, err := r.secrets.GetSecretsByIDs(ctx, secretIDs.ids)
	if err != nil {
		r.logger.Warn(ctx, "activity enrichment: secret lookup failed", "error", err)
	}

	entries := make([]Entry, 0, len(logs))
	for _, l := range logs {
		e := Entry{ActivityLog: l}

		if u, ok := users[l.UserID]; ok {
			e.User = &UserRef{ID: u.ID, Username: u.Username}
		}

		switch l.ResourceType {
		case model.ResourceProject:
			if p, ok := projects[l.ResourceID]; ok {
				e.Resource = &ResourceRef{ID: p.ID, Name: p.Name}
			}
		case model.ResourceSecret:
			if s, ok := secrets[l.ResourceID]; ok {
				e.Resource = &ResourceRef{ID: s.ID, Name: s.Name, ProjectID: s.ProjectID}
			}
		case model.ResourceUser:
			if u, ok := users[l.ResourceID]; ok {
				e.Resource = &ResourceRef{ID: u.ID, Name: u.Username}
			}
		}

		entries = append(entries, e)
	}
	return entries
}

// idSet collects distinct ids in first-seen order.
type idSet struct {
	seen map[int64]struct{}
	ids  []int64
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[int64]struct{})}
}

func (s *idSet) add(id int64) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}
