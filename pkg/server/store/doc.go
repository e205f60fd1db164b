// Package store provides storage abstractions for the keyvault server.
//
// This package defines interfaces for relational operations, allowing the
// server endpoints and the core services to be decoupled from the specific
// database implementation. Implementations live in store/gorm; tests use
// testify mocks of these interfaces.
//
// # Available Stores
//
//   - UsersStore: account creation and lookup
//   - ProjectsStore: project CRUD, creator role granted atomically
//   - MembershipsStore: per-project role assignment and lookup
//   - SecretsStore: secret metadata rows
//   - ActivityStore: append-only activity log
//   - HealthStore: connectivity probe
//
// # Errors
//
// Implementations translate driver errors into ErrNotFound and ErrConflict
// so callers can classify them with errors.Is:
//
//	project, err := projects.GetProject(ctx, id)
//	if errors.Is(err, store.ErrNotFound) {
//	    // 404
//	}
package store
