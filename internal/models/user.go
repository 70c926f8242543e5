// Package models contains the domain entities of the blog and the response
// contract every handler answers with.
package models

// User is a registered author. Password holds a bcrypt hash and never leaves
// the process; use ToInfo for anything sent to a client.
type User struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false" json:"created_at"`
}

// UserInfo is the public view of a User.
type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ToInfo strips the password hash.
func (u *User) ToInfo() UserInfo {
	return UserInfo{
		ID:    u.ID,
		Email: u.Email,
	}
}
