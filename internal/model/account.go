package model

import "time"

// PasswordHasher converts a plaintext password into its stored form and
// checks a plaintext candidate against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Account represents a registered user. Password holds the plaintext only
// between construction and HashPassword; persisted accounts always carry the
// encoded hash.
type Account struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Password  string
	CreatedAt time.Time
}

// NewAccount builds an Account from sanitized registration input.
func NewAccount(email, firstName, lastName, password string) *Account {
	return &Account{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Password:  password,
	}
}

// HashPassword replaces the plaintext password with its hash.
func (a *Account) HashPassword(h PasswordHasher) error {
	hash, err := h.Hash(a.Password)
	if err != nil {
		return err
	}
	a.Password = hash
	return nil
}

// ComparePassword reports whether password matches the stored hash.
func (a *Account) ComparePassword(h PasswordHasher, password string) (bool, error) {
	return h.Verify(password, a.Password)
}

// Public returns the view of the account that is safe to hand to callers.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

// CreatedAccount is what the repository reports back after a successful insert.
type CreatedAccount struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// PublicAccount represents account data safe for API responses (no credential).
type PublicAccount struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token   string        `json:"token"`
	Account PublicAccount `json:"account"`
}
