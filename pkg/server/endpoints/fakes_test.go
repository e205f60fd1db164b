package endpoints

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// memStore is an in-memory relational store with the semantics of the GORM
// implementation: generated IDs, unique constraints, creator admin role and
// the project activity join.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]model.User
	projects    map[int64]model.Project
	memberships map[int64]model.UserProjectRole
	secrets     map[int64]model.Secret
	logs        []model.ActivityLog
	healthErr   error
}

var (
	_ store.UsersStore       = (*memStore)(nil)
	_ store.ProjectsStore    = (*memStore)(nil)
	_ store.MembershipsStore = (*memStore)(nil)
	_ store.SecretsStore     = (*memStore)(nil)
	_ store.ActivityStore    = (*memStore)(nil)
	_ store.HealthStore      = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:       map[int64]model.User{},
		projects:    map[int64]model.Project{},
		memberships: map[int64]model.UserProjectRole{},
		secrets:     map[int64]model.Secret{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return store.ErrConflict
		}
	}
	if user.Role == "" {
		user.Role = model.GlobalRoleUser
	}
	user.ID = m.id()
	user.CreatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) GetUsersByIDs(_ context.Context, ids []int64) (map[int64]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]model.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *memStore) CreateProject(_ context.Context, project *model.Project, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.ID = m.id()
	project.CreatedAt = time.Now()
	m.projects[project.ID] = *project
	mid := m.id()
	m.memberships[mid] = model.UserProjectRole{ID: mid, UserID: ownerID, ProjectID: project.ID, Role: model.ProjectRoleAdmin}
	return nil
}

func (m *memStore) GetProject(_ context.Context, id int64) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ListProjects(_ context.Context) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) ListProjectsForUser(_ context.Context, userID int64) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Project
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			list = append(list, m.projects[mem.ProjectID])
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) UpdateProject(_ context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return store.ErrNotFound
	}
	m.projects[project.ID] = *project
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.projects, id)
	for mid, mem := range m.memberships {
		if mem.ProjectID == id {
			delete(m.memberships, mid)
		}
	}
	for sid, s := range m.secrets {
		if s.ProjectID == id {
			delete(m.secrets, sid)
		}
	}
	return nil
}

func (m *memStore) GetProjectsByIDs(_ context.Context, ids []int64) (map[int64]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]model.Project{}
	for _, id := range ids {
		if p, ok := m.projects[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) ProjectRole(_ context.Context, userID, projectID int64) (*model.ProjectRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.ProjectID == projectID {
			role := mem.Role
			return &role, nil
		}
	}
	return nil, nil
}

func (m *memStore) AssignRole(_ context.Context, membership *model.UserProjectRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, mem := range m.memberships {
		if mem.UserID == membership.UserID && mem.ProjectID == membership.ProjectID {
			mem.Role = membership.Role
			m.memberships[id] = mem
			membership.ID = id
			return nil
		}
	}
	membership.ID = m.id()
	m.memberships[membership.ID] = *membership
	return nil
}

func (m *memStore) GetMembership(_ context.Context, id int64) (*model.UserProjectRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &mem, nil
}

func (m *memStore) RemoveMembership(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memberships[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.memberships, id)
	return nil
}

func (m *memStore) ListMembers(_ context.Context, projectID int64) ([]store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []store.Member
	for _, mem := range m.memberships {
		if mem.ProjectID == projectID {
			u := m.users[mem.UserID]
			list = append(list, store.Member{UserProjectRole: mem, Username: u.Username, Email: u.Email})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// membershipID returns the ID of the (user, project) assignment, or 0.
func (m *memStore) membershipID(userID, projectID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, mem := range m.memberships {
		if mem.UserID == userID && mem.ProjectID == projectID {
			return id
		}
	}
	return 0
}

func (m *memStore) CreateSecret(_ context.Context, secret *model.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.secrets {
		if s.SSMPath == secret.SSMPath {
			return store.ErrConflict
		}
	}
	secret.ID = m.id()
	secret.CreatedAt = time.Now()
	secret.UpdatedAt = secret.CreatedAt
	m.secrets[secret.ID] = *secret
	return nil
}

func (m *memStore) GetSecret(_ context.Context, id int64) (*model.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) GetSecretBySSMPath(_ context.Context, path string) (*model.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.secrets {
		if s.SSMPath == path {
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListSecrets(_ context.Context, projectID int64) ([]model.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Secret
	for _, s := range m.secrets {
		if s.ProjectID == projectID {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memStore) UpdateSecret(_ context.Context, secret *model.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[secret.ID]; !ok {
		return store.ErrNotFound
	}
	secret.UpdatedAt = time.Now()
	m.secrets[secret.ID] = *secret
	return nil
}

func (m *memStore) DeleteSecret(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.secrets, id)
	return nil
}

func (m *memStore) GetSecretsByIDs(_ context.Context, ids []int64) (map[int64]model.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]model.Secret{}
	for _, id := range ids {
		if s, ok := m.secrets[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *memStore) AppendActivity(_ context.Context, entry *model.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memStore) ListActivity(_ context.Context, filter store.ActivityFilter) ([]model.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityLog
	for _, l := range m.logs {
		if filter.UserID != nil && l.UserID != *filter.UserID {
			continue
		}
		if filter.ProjectID != nil {
			pid := *filter.ProjectID
			inProject := l.ResourceType == model.ResourceProject && l.ResourceID == pid
			if l.ResourceType == model.ResourceSecret {
				if s, ok := m.secrets[l.ResourceID]; ok && s.ProjectID == pid {
					inProject = true
				}
			}
			if !inProject {
				continue
			}
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// actions returns the logged (action, resource type) pairs in append order.
func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, string(l.ResourceType)+" "+string(l.Action))
	}
	return out
}

func (m *memStore) CheckConnectivity(context.Context) error {
	return m.healthErr
}
