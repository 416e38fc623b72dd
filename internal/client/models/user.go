// Package models defines the data records persisted by the todo keeper.
package models

// User is a locally registered account.
//
// The password is stored in cleartext and compared by literal equality;
// the record layout matches data written by earlier versions of the app,
// so fields must not be renamed.
type User struct {
	// ID is derived from the signup timestamp (decimal Unix milliseconds).
	ID string `json:"id"`

	// Email is the natural lookup key. Uniqueness is enforced only by a
	// value scan at signup, not by any index.
	Email string `json:"email"`

	Password string `json:"password"`
	Name     string `json:"name"`
}
