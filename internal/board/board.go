package board

import (
	"time"

	boardDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/board"
)

type Column struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Cards     []*Card   `json:"cards,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Card struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	ColumnID    int64      `json:"column_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	Position    int        `json:"position"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func ColumnFromDataModel(c *boardDatamodel.Column) *Column {
	return &Column{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		Name:      c.Name,
		Position:  c.Position,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func CardFromDataModel(c *boardDatamodel.Card) *Card {
	return &Card{
		ID:          c.ID,
		ProjectID:   c.ProjectID,
		ColumnID:    c.ColumnID,
		Title:       c.Title,
		Description: c.Description,
		AssigneeID:  c.AssigneeID,
		Position:    c.Position,
		DueDate:     c.DueDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
