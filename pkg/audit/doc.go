// Package audit writes security events as RFC5424 syslog lines.
//
// Activity log entries are mirrored here so an external collector can ship
// them off the host, and authentication and authorization failures, which
// never reach the activity log, are written here as well.
//
// # Event Types
//
//   - ActivityEvent: a recorded activity log entry
//   - AuthnEvent: a login attempt
//   - DeniedEvent: an authorization denial
//
// # Usage
//
//	logger := audit.NewLogger(os.Stdout)
//	logger.Log(audit.AuthnEvent{Username: "alice", ClientIP: ip, Success: true})
package audit
