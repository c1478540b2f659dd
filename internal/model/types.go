package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts both JSON numbers and strings; the backend has used both for
// organization, member and application identifiers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

func IDFromInt(n int64) ID { return ID(strconv.FormatInt(n, 10)) }

type Account struct {
	ID          ID             `json:"id"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Token       string         `json:"token,omitempty"`
	Enabled     bool           `json:"enabled,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	UpdatedAt   string         `json:"updatedAt,omitempty"`
}

// User is an account user. The session user additionally carries the
// account and session tokens.
type User struct {
	ID           ID     `json:"id"`
	AccountID    ID     `json:"accountId,omitempty"`
	AccountToken string `json:"accountToken,omitempty"`
	Token        string `json:"token,omitempty"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Enabled      bool   `json:"enabled,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Member is an account user as listed on the members screen.
type Member = User

type MemberList struct {
	AccountUsers []Member `json:"accountUsers"`
}

type Application struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Token        string `json:"token,omitempty"`
	BackendToken string `json:"backendToken,omitempty"`
	Enabled      bool   `json:"enabled,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

type ApplicationList struct {
	Applications []Application `json:"applications"`
}

type AccountInput struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Plan             string `json:"plan,omitempty"`
	OriginalReferrer string `json:"originalReferrer,omitempty"`
}

type MemberInput struct {
	Email            string `json:"email"`
	Password         string `json:"password,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	OriginalReferrer string `json:"originalReferrer,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
}

type ApplicationInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// ErrorItem is one entry of the backend's error list.
type ErrorItem struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
