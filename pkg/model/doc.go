// Package model defines the database models for keyvault.
//
// This package contains GORM models that map to the keyvault PostgreSQL
// schema in db/migrations.
//
// # Core Models
//
//   - User: an account with a global role (admin or user)
//   - Project: a named container for secrets
//   - UserProjectRole: a user's role (admin, editor, viewer) inside one project
//   - Secret: secret metadata plus a mirror of the value held by the credential store
//   - ActivityLog: append-only record of every mutation and secret access
//   - Parameter: a credential store entry kept by the database backend
//
// # Database Schema
//
//   - users
//   - projects
//   - user_project_roles (unique on user_id, project_id)
//   - secrets (unique on ssm_path)
//   - activity_logs
//   - credential_parameters
package model
