package model

import "time"

// Action is the kind of operation an activity log entry documents.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionViewed   Action = "viewed"
	ActionAssigned Action = "assigned"
)

// ResourceType names the kind of entity an activity log entry refers to.
type ResourceType string

const (
	ResourceProject ResourceType = "project"
	ResourceSecret  ResourceType = "secret"
	ResourceUser    ResourceType = "user"
)

// ActivityLog is an append-only audit record.
type ActivityLog struct {
	ID           int64        `gorm:"column:id;primaryKey" json:"id"`
	UserID       int64        `gorm:"column:user_id;not null;index" json:"userId"`
	Action       Action       `gorm:"column:action;not null" json:"action"`
	ResourceType ResourceType `gorm:"column:resource_type;not null" json:"resourceType"`
	ResourceID   int64        `gorm:"column:resource_id;not null" json:"resourceId"`
	Details      string       `gorm:"column:details" json:"details"`
	Timestamp    time.Time    `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
