package dto

import (
	"time"

	"gearshed/internal/domain"
)

type User struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	MiddleName *string `json:"middleName"`
	LastName   *string `json:"lastName"`
	FullName   string  `json:"fullName"`
	AvatarURL  *string `json:"avatarUrl"`
	Role       string  `json:"role"`
	CreatedAt  string  `json:"createdAt"`
}

func UserFromDomain(user *domain.User) *User {
	return &User{
		ID:         user.ID.String(),
		Email:      user.Email,
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
		LastName:   user.LastName,
		FullName:   user.FullName(),
		AvatarURL:  user.AvatarURL,
		Role:       string(user.Role),
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

func UsersFromDomain(users []*domain.User) []*User {
	out := make([]*User, 0, len(users))
	for _, user := range users {
		out = append(out, UserFromDomain(user))
	}
	return out
}

type Session struct {
	UserID    string `json:"userId"`
	ExpiresAt string `json:"expiresAt"`
}

func SessionFromDomain(session *domain.Session) *Session {
	return &Session{
		UserID:    session.UserID.String(),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}
}

type Login struct {
	Token   string   `json:"token"`
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}
