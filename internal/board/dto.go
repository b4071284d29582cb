package board

import (
	"strings"
	"time"

	"github.com/frahmantamala/taskboard/internal/core/common/validation"
)

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

type CreateColumnDTO struct {
	Name string `json:"name"`
}

func (d CreateColumnDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type RenameColumnDTO struct {
	Name string `json:"name"`
}

func (d RenameColumnDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type ReorderColumnsDTO struct {
	ColumnIDs []int64 `json:"column_ids"`
}

func (d ReorderColumnsDTO) Validate() error {
	if len(d.ColumnIDs) == 0 {
		return ValidationError{Msg: "column_ids is required"}
	}
	seen := make(map[int64]struct{}, len(d.ColumnIDs))
	for _, id := range d.ColumnIDs {
		if _, dup := seen[id]; dup {
			return ValidationError{Msg: "column_ids contains duplicates"}
		}
		seen[id] = struct{}{}
	}
	return nil
}

type CreateCardDTO struct {
	ColumnID    int64      `json:"column_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (d CreateCardDTO) Validate() error {
	if d.ColumnID <= 0 {
		return ValidationError{Msg: "column_id is required"}
	}
	if err := validation.ValidateCardTitle(d.Title); err != nil {
		return err
	}
	return nil
}

type UpdateCardDTO struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (d UpdateCardDTO) Validate() error {
	if d.Title != nil {
		if err := validation.ValidateCardTitle(*d.Title); err != nil {
			return err
		}
	}
	if d.Title == nil && d.Description == nil && d.AssigneeID == nil && d.DueDate == nil {
		return ValidationError{Msg: "nothing to update"}
	}
	return nil
}

type MoveCardDTO struct {
	ColumnID int64 `json:"column_id"`
	Position int   `json:"position"`
}

func (d MoveCardDTO) Validate() error {
	if d.ColumnID <= 0 {
		return ValidationError{Msg: "column_id is required"}
	}
	if err := validation.ValidatePosition(int64(d.Position)); err != nil {
		return err
	}
	return nil
}
