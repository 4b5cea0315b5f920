// Package presenter maps domain values to their JSON representation.
//
// Which optional fields appear is decided here and only here: description
// and due_date are omitted only when unset, author only when it was
// attached, and is_completed is always present.
package presenter

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Layouts used in responses.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// DueDate is the expanded form of a task's due date. All four fields
// describe the same instant.
type DueDate struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Formatted string `json:"formatted"`
	Timestamp int64  `json:"timestamp"`
}

// Author is the public projection of a task's owner.
type Author struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
}

// Task is the JSON form of a task.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	DueDate     *DueDate  `json:"due_date,omitempty"`
	Priority    string    `json:"priority"`
	Author      *Author   `json:"author,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// Meta is the pagination block of a collection.
type Meta struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// Collection is one page of tasks.
type Collection struct {
	Data []Task `json:"data"`
	Meta Meta   `json:"meta"`
}

// User is the JSON form of the authenticated user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt string    `json:"created_at"`
}

// Envelope wraps a single resource in a data key.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// Presenter renders times in a fixed display location.
type Presenter struct {
	loc *time.Location
}

// New creates a Presenter for loc. A nil loc means UTC.
func New(loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.UTC
	}
	return &Presenter{loc: loc}
}

// Location returns the display location.
func (p *Presenter) Location() *time.Location {
	return p.loc
}

// Task renders t.
func (p *Presenter) Task(t *domain.Task) Task {
	out := Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    t.Priority.String(),
		CreatedAt:   p.format(t.CreatedAt),
		UpdatedAt:   p.format(t.UpdatedAt),
	}
	if t.DueDate != nil {
		due := t.DueDate.In(p.loc)
		out.DueDate = &DueDate{
			Date:      due.Format(DateLayout),
			Time:      due.Format(TimeLayout),
			Formatted: due.Format(DateTimeLayout),
			Timestamp: due.Unix(),
		}
	}
	if t.Author != nil {
		out.Author = &Author{ID: t.Author.ID, Name: t.Author.Name, Username: t.Author.Username}
	}
	return out
}

// Page renders a page of tasks. Data is never null.
func (p *Presenter) Page(page *domain.TaskPage) Collection {
	data := make([]Task, len(page.Tasks))
	for i, t := range page.Tasks {
		data[i] = p.Task(t)
	}
	return Collection{
		Data: data,
		Meta: Meta{
			Total:       page.Meta.Total,
			PerPage:     page.Meta.PerPage,
			CurrentPage: page.Meta.CurrentPage,
			LastPage:    page.Meta.LastPage,
			From:        page.Meta.From,
			To:          page.Meta.To,
		},
	}
}

// User renders u.
func (p *Presenter) User(u *domain.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: p.format(u.CreatedAt),
	}
}

func (p *Presenter) format(t time.Time) string {
	return t.In(p.loc).Format(DateTimeLayout)
}
