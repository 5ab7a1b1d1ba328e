package domain

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (role Role) Valid() bool {
	return role == RoleAdmin || role == RoleTeacher || role == RoleStudent
}

type User struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Type         Role      `json:"type"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Can reports whether the user holds the required role. Admins can do everything teachers can;
// any authenticated user satisfies the student role.
func (user User) Can(required Role) bool {
	switch required {
	case RoleAdmin:
		return user.Type == RoleAdmin
	case RoleTeacher:
		return user.Type == RoleTeacher || user.Type == RoleAdmin
	}
	return true
}

// DisplayName falls back to the username when no name was given
func (user User) DisplayName() string {
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}

// Public strips credentials before a user leaves the service layer
func (user User) Public() User {
	user.PasswordHash = ""
	return user
}

type Session struct {
	Id        string    `json:"id"`
	UserId    string    `json:"userId"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}
