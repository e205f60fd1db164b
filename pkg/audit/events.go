package audit

import (
	"fmt"
	"strconv"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ActivityEvent mirrors an activity log entry.
type ActivityEvent struct {
	Entry model.ActivityLog
}

func (e ActivityEvent) MessageID() string {
	return string(e.Entry.Action)
}

func (e ActivityEvent) Message() string {
	msg := fmt.Sprintf("user %d %s %s %d", e.Entry.UserID, e.Entry.Action, e.Entry.ResourceType, e.Entry.ResourceID)
	if e.Entry.Details != "" {
		msg += ": " + e.Entry.Details
	}
	return msg
}

func (e ActivityEvent) Severity() Severity {
	if e.Entry.Action == model.ActionViewed {
		return SeverityInfo
	}
	return SeverityNotice
}

func (e ActivityEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ActivityEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": strconv.FormatInt(e.Entry.UserID, 10),
		},
		SDIDSubject: {
			string(e.Entry.ResourceType): strconv.FormatInt(e.Entry.ResourceID, 10),
		},
		SDIDAction: {
			"operation": string(e.Entry.Action),
			"result":    "success",
		},
	}
}

// AuthnEvent represents a login attempt
type AuthnEvent struct {
	Username     string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e AuthnEvent) MessageID() string {
	return "authn"
}

func (e AuthnEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated", e.Username)
	}
	msg := fmt.Sprintf("%s failed to authenticate", e.Username)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AuthnEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthnEvent) Facility() int {
	return FacilityAuth
}

func (e AuthnEvent) StructuredData() map[string]map[string]string {
	result := "failure"
	if e.Success {
		result = "success"
	}
	return map[string]map[string]string{
		SDIDAuth:   {"user": e.Username},
		SDIDClient: {"ip": e.ClientIP},
		SDIDAction: {"operation": "authenticate", "result": result},
	}
}

// DeniedEvent represents an authorization denial
type DeniedEvent struct {
	UserID       int64
	Action       string
	ResourceType model.ResourceType
	ResourceID   int64
	ClientIP     string
}

func (e DeniedEvent) MessageID() string {
	return "denied"
}

func (e DeniedEvent) Message() string {
	return fmt.Sprintf("user %d is not allowed to %s %s %d", e.UserID, e.Action, e.ResourceType, e.ResourceID)
}

func (e DeniedEvent) Severity() Severity {
	return SeverityWarning
}

func (e DeniedEvent) Facility() int {
	return FacilityAuthPriv
}

func (e DeniedEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": strconv.FormatInt(e.UserID, 10)},
		SDIDSubject: {string(e.ResourceType): strconv.FormatInt(e.ResourceID, 10)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": e.Action, "result": "denied"},
	}
}
