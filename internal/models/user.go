package models

// User represents an account record in the system
type User struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	FullName     *string `json:"full_name"`
	PasswordHash string  `json:"-"` // Not serialized
	IsActive     bool    `json:"is_active"`
	IsSuperuser  bool    `json:"is_superuser"`
}

// UserCreate is the public registration payload. Privilege flags are not
// accepted here; superusers are created through the startup bootstrap or by
// another superuser.
type UserCreate struct {
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Password string  `json:"password"`
}

// UserUpdate is a partial update request: only fields present in the body
// are applied, everything else is left untouched.
type UserUpdate struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	Password    *string `json:"password"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// UserPatch is the storage-level form of UserUpdate: the plaintext password
// has already been hashed by the service layer.
type UserPatch struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	IsActive     *bool
	IsSuperuser  *bool
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
