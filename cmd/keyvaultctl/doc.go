// Command keyvaultctl runs the keyvault secrets server and its
// administrative tasks.
//
// keyvault stores secrets grouped into projects. Every secret is written
// through to a credential store (AWS SSM Parameter Store by default) before
// its metadata is committed to PostgreSQL, access is decided by global and
// per-project roles, and every mutation or secret read is appended to an
// activity log.
//
// # Quick Start
//
//	# Generate a session signing secret
//	export KEYVAULT_SESSION_SECRET="$(keyvaultctl data-key generate)"
//
//	# Run database migrations
//	keyvaultctl db migrate
//
//	# Bootstrap a global admin
//	keyvaultctl user create admin --email admin@example.com --admin
//
//	# Start the server
//	keyvaultctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - KEYVAULT_SESSION_SECRET: HMAC key for session tokens, at least 32 bytes
//   - KEYVAULT_DATA_KEY: base64 256-bit key, required by the database credential store
//   - KEYVAULT_CONFIG_PATH: directory holding keyvault.yml (default /etc/keyvault)
//   - KEYVAULT_<ATTRIBUTE>: overrides any keyvault.yml attribute
//   - PORT: server port (default: 8000)
package main
