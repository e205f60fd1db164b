package model

import "time"

// Parameter is a credential store entry persisted by the database backend.
// Value is sealed with the data key when Encrypted is set.
type Parameter struct {
	Path      string    `gorm:"column:path;primaryKey"`
	Value     []byte    `gorm:"column:value;type:bytea;not null"`
	Encrypted bool      `gorm:"column:encrypted;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Parameter) TableName() string {
	return "credential_parameters"
}
