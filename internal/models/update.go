package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that remembers whether it was present in the
// payload and whether it was an explicit null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON is only invoked for keys present in the payload.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// UserUpdate is a partial update: only fields present in the payload are applied.
// swagger:model UserUpdate
type UserUpdate struct {
	Email    Optional[string] `json:"email" swaggertype:"string"`
	Username Optional[string] `json:"username" swaggertype:"string"`
	IsAdmin  Optional[bool]   `json:"is_admin" swaggertype:"boolean"`
	IsActive Optional[bool]   `json:"is_active" swaggertype:"boolean"`
}

// Empty reports whether no field was provided.
func (u UserUpdate) Empty() bool {
	return !u.Email.Set && !u.Username.Set && !u.IsAdmin.Set && !u.IsActive.Set
}

// TouchesFlags reports whether the update changes is_admin or is_active.
func (u UserUpdate) TouchesFlags() bool {
	return u.IsAdmin.Set || u.IsActive.Set
}

// Validate checks only the fields that are present. None of the user
// columns are nullable, so an explicit null is rejected.
func (u *UserUpdate) Validate() error {
	var errs ValidationErrors

	if u.Email.Set {
		if u.Email.Null {
			errs.add("email", ErrNull)
		} else {
			u.Email.Value = NormalizeEmail(u.Email.Value)
			if err := ValidateEmail(u.Email.Value); err != nil {
				errs.add("email", err)
			}
		}
	}
	if u.Username.Set {
		if u.Username.Null {
			errs.add("username", ErrNull)
		} else if err := ValidateUsername(u.Username.Value); err != nil {
			errs.add("username", err)
		}
	}
	if u.IsAdmin.Set && u.IsAdmin.Null {
		errs.add("is_admin", ErrNull)
	}
	if u.IsActive.Set && u.IsActive.Null {
		errs.add("is_active", ErrNull)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply copies the present fields onto user and returns the changed columns.
func (u UserUpdate) Apply(user *User) []string {
	var columns []string
	if u.Email.Set && !u.Email.Null {
		user.Email = u.Email.Value
		columns = append(columns, "email")
	}
	if u.Username.Set && !u.Username.Null {
		user.Username = u.Username.Value
		columns = append(columns, "username")
	}
	if u.IsAdmin.Set && !u.IsAdmin.Null {
		user.IsAdmin = u.IsAdmin.Value
		columns = append(columns, "is_admin")
	}
	if u.IsActive.Set && !u.IsActive.Null {
		user.IsActive = u.IsActive.Value
		columns = append(columns, "is_active")
	}
	return columns
}
