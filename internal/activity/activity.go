package activity

import (
	"time"

	activityDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/activity"
)

type Entry struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromDataModel(e *activityDatamodel.Entry) *Entry {
	return &Entry{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
}
