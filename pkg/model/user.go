package model

import "time"

// GlobalRole is the account-level role of a user. It is independent of any
// per-project role.
type GlobalRole string

const (
	GlobalRoleAdmin GlobalRole = "admin"
	GlobalRoleUser  GlobalRole = "user"
)

// Valid reports whether r is a known global role.
func (r GlobalRole) Valid() bool {
	return r == GlobalRoleAdmin || r == GlobalRoleUser
}

// User is a registered account. Password holds a bcrypt hash and is never
// serialized.
type User struct {
	ID        int64      `gorm:"column:id;primaryKey" json:"id"`
	Username  string     `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Password  string     `gorm:"column:password;not null" json:"-"`
	Email     string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName  string     `gorm:"column:full_name" json:"fullName"`
	Role      GlobalRole `gorm:"column:role;not null" json:"role"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user is a global admin.
func (u *User) IsAdmin() bool {
	return u.Role == GlobalRoleAdmin
}
