// Package storetest provides testify mocks of the store interfaces and the
// credential store, shared by the service and endpoint tests.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

var (
	_ store.UsersStore       = (*MockUsersStore)(nil)
	_ store.ProjectsStore    = (*MockProjectsStore)(nil)
	_ store.MembershipsStore = (*MockMembershipsStore)(nil)
	_ store.SecretsStore     = (*MockSecretsStore)(nil)
	_ store.ActivityStore    = (*MockActivityStore)(nil)
	_ store.HealthStore      = (*MockHealthStore)(nil)
	_ credstore.Store        = (*MockCredentialStore)(nil)
)

// MockUsersStore implements store.UsersStore for testing using testify/mock
type MockUsersStore struct {
	mock.Mock
}

func (m *MockUsersStore) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsersStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUsersStore) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]model.User), args.Error(1)
}

// MockProjectsStore implements store.ProjectsStore for testing using testify/mock
type MockProjectsStore struct {
	mock.Mock
}

func (m *MockProjectsStore) CreateProject(ctx context.Context, project *model.Project, ownerID int64) error {
	args := m.Called(ctx, project, ownerID)
	return args.Error(0)
}

func (m *MockProjectsStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectsStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectsStore) ListProjectsForUser(ctx context.Context, userID int64) ([]model.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectsStore) UpdateProject(ctx context.Context, project *model.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectsStore) DeleteProject(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectsStore) GetProjectsByIDs(ctx context.Context, ids []int64) (map[int64]model.Project, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]model.Project), args.Error(1)
}

// MockMembershipsStore implements store.MembershipsStore for testing using testify/mock
type MockMembershipsStore struct {
	mock.Mock
}

func (m *MockMembershipsStore) ProjectRole(ctx context.Context, userID, projectID int64) (*model.ProjectRole, error) {
	args := m.Called(ctx, userID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectRole), args.Error(1)
}

func (m *MockMembershipsStore) AssignRole(ctx context.Context, membership *model.UserProjectRole) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipsStore) GetMembership(ctx context.Context, id int64) (*model.UserProjectRole, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProjectRole), args.Error(1)
}

func (m *MockMembershipsStore) RemoveMembership(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMembershipsStore) ListMembers(ctx context.Context, projectID int64) ([]store.Member, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Member), args.Error(1)
}

// MockSecretsStore implements store.SecretsStore for testing using testify/mock
type MockSecretsStore struct {
	mock.Mock
}

func (m *MockSecretsStore) CreateSecret(ctx context.Context, secret *model.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *MockSecretsStore) GetSecret(ctx context.Context, id int64) (*model.Secret, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Secret), args.Error(1)
}

func (m *MockSecretsStore) GetSecretBySSMPath(ctx context.Context, path string) (*model.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Secret), args.Error(1)
}

func (m *MockSecretsStore) ListSecrets(ctx context.Context, projectID int64) ([]model.Secret, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Secret), args.Error(1)
}

func (m *MockSecretsStore) UpdateSecret(ctx context.Context, secret *model.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *MockSecretsStore) DeleteSecret(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSecretsStore) GetSecretsByIDs(ctx context.Context, ids []int64) (map[int64]model.Secret, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]model.Secret), args.Error(1)
}

// MockActivityStore implements store.ActivityStore for testing using testify/mock
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) AppendActivity(ctx context.Context, entry *model.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityStore) ListActivity(ctx context.Context, filter store.ActivityFilter) ([]model.ActivityLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCredentialStore implements credstore.Store for testing using testify/mock
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Put(ctx context.Context, path, value string, encrypted bool) error {
	args := m.Called(ctx, path, value, encrypted)
	return args.Error(0)
}

func (m *MockCredentialStore) Get(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
