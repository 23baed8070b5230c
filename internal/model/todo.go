package model

import "strings"

// Todo is the domain model for a todo entry, as the remote collection
// stores it. ID and both timestamps are assigned by the server.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// Edited reports whether the record was mutated after creation.
func (t Todo) Edited() bool {
	return !t.UpdatedAt.Equal(t.CreatedAt.Time)
}

// Draft is the input buffer for a todo that has not been submitted yet.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Blank reports whether the draft has nothing but whitespace as a title.
func (d Draft) Blank() bool { return strings.TrimSpace(d.Title) == "" }

// EditBuffer holds an in-progress edit of exactly one existing todo.
type EditBuffer struct {
	ID          string
	Title       string
	Description string
}

// NewEditBuffer copies the editable fields of t.
func NewEditBuffer(t Todo) *EditBuffer {
	return &EditBuffer{ID: t.ID, Title: t.Title, Description: t.Description}
}

// Blank reports whether the edited title is empty after trimming.
func (e EditBuffer) Blank() bool { return strings.TrimSpace(e.Title) == "" }

// Patch is a partial update. Nil fields are left out of the request.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// CompletedPatch sets only the completion flag.
func CompletedPatch(completed bool) Patch {
	return Patch{Completed: &completed}
}

// ContentPatch sets title and description together.
func ContentPatch(title, description string) Patch {
	return Patch{Title: &title, Description: &description}
}

// Apply returns t with every non-nil field of p copied over.
func (p Patch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Counts are the derived totals shown in list headers.
type Counts struct {
	Total     int
	Completed int
	Pending   int
}

// Tally computes Counts for todos.
func Tally(todos []Todo) Counts {
	var c Counts
	for _, t := range todos {
		if t.Completed {
			c.Completed++
		}
	}
	c.Total = len(todos)
	c.Pending = c.Total - c.Completed
	return c
}
