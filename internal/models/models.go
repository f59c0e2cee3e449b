package models

import (
	"strings"
	"time"
)

type User struct {
	ID         int64
	LoginID    string
	Name       string
	Email      string
	Phone      string
	PassHash   string
	Profile    string
	LoggedInAt *time.Time
}

// ClientType partitions sessions: MOBILE and WEB sessions never evict each other.
type ClientType string

const (
	ClientMobile ClientType = "MOBILE"
	ClientWeb    ClientType = "WEB"
)

func ParseClientType(s string) (ClientType, bool) {
	switch ClientType(strings.ToUpper(strings.TrimSpace(s))) {
	case ClientMobile:
		return ClientMobile, true
	case ClientWeb:
		return ClientWeb, true
	}

	return "", false
}

func (c ClientType) String() string {
	return string(c)
}

// ClientInfo describes the calling device; it is forwarded to the push service.
type ClientInfo struct {
	Type  ClientType
	Agent string
	IP    string
}

type TokenKind string

const (
	AccessToken  TokenKind = "access_token"
	RefreshToken TokenKind = "refresh_token"
)

type TokenPayload struct {
	Kind      TokenKind
	UserID    int64
	FcmToken  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Message is a rendered mail queued for the mail sender.
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SignupInput struct {
	LoginID  string
	Password string
	Name     string
	Email    string
	Phone    string
}
