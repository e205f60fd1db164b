package model

import "time"

// Secret holds the metadata of a secret and a mirror of its value. The
// authoritative value lives in the credential store under SSMPath.
type Secret struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Value       string    `gorm:"column:value;not null" json:"value"`
	Description *string   `gorm:"column:description" json:"description,omitempty"`
	ProjectID   int64     `gorm:"column:project_id;not null;index" json:"projectId"`
	SSMPath     string    `gorm:"column:ssm_path;not null;uniqueIndex" json:"ssmPath"`
	IsEncrypted bool      `gorm:"column:is_encrypted;not null" json:"isEncrypted"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Secret) TableName() string {
	return "secrets"
}
