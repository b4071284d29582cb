package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventProjectCreated  = "project.created"
	EventProjectUpdated  = "project.updated"
	EventProjectDeleted  = "project.deleted"
	EventMemberJoined    = "project.member_joined"
	EventInviteSent      = "project.invite_sent"
	EventColumnCreated   = "column.created"
	EventColumnReordered = "column.reordered"
	EventCardCreated     = "card.created"
	EventCardUpdated     = "card.updated"
	EventCardMoved       = "card.moved"
	EventCardDeleted     = "card.deleted"
)

// NewActivityEvent builds a board/project event carrying the fields the
// activity recorder persists.
func NewActivityEvent(eventType string, projectID, actorID int64, entityType string, entityID int64, detail string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"project_id":  projectID,
			"actor_id":    actorID,
			"entity_type": entityType,
			"entity_id":   entityID,
			"detail":      detail,
		},
	}
}
