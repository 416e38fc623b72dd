package models

import "time"

// Todo is a single todo-list item belonging to one user.
type Todo struct {
	// ID is derived from the creation timestamp (decimal Unix milliseconds).
	ID string `json:"id"`

	Text      string `json:"text"`
	Completed bool   `json:"completed"`

	// CreatedAt never changes after creation. UpdatedAt is refreshed on
	// every mutation (toggle, edit).
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TodoPatch describes a partial update of a Todo. Nil fields are left
// untouched; set fields are merged over the stored record.
type TodoPatch struct {
	Text      *string
	Completed *bool
}
