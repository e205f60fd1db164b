// Package config provides configuration management for keyvault.
//
// Settings are read from $KEYVAULT_CONFIG_PATH/keyvault.yml (default
// /etc/keyvault/keyvault.yml) and then overridden by KEYVAULT_* environment
// variables, e.g. KEYVAULT_CREDENTIAL_STORE or KEYVAULT_LOG_LEVEL. The origin
// of every attribute is tracked and reported by `keyvaultctl configuration
// show`.
//
// # Environment-only settings
//
//   - DATABASE_URL: PostgreSQL connection string
//   - KEYVAULT_SESSION_SECRET: HMAC key for session tokens, at least 32 bytes
//   - KEYVAULT_DATA_KEY: base64 AES-256 key for the database credential store
package config
