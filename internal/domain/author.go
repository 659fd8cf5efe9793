package domain

import (
	"encoding/json"
	"fmt"
)

// Author is the sender field of a message. The backend returns it either as
// a bare id string or as a populated user object, so it is modeled as a
// tagged union: ID is always set, User only when the server populated it.
type Author struct {
	ID   string
	User *User
}

// Populated reports whether the server expanded the sender reference.
func (a Author) Populated() bool {
	return a.User != nil
}

// DisplayName returns the sender's name when populated, otherwise the id.
func (a Author) DisplayName() string {
	if a.User != nil && a.User.Name != "" {
		return a.User.Name
	}
	return a.ID
}

func (a *Author) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		a.ID = id
		a.User = nil
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("author is neither id string nor user object: %w", err)
	}
	a.ID = u.ID
	a.User = &u
	return nil
}

func (a Author) MarshalJSON() ([]byte, error) {
	if a.User != nil {
		return json.Marshal(a.User)
	}
	return json.Marshal(a.ID)
}
