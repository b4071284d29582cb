package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/taskboard/internal"
	activityDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/activity"
	"github.com/frahmantamala/taskboard/internal/core/events"
)

type Repository interface {
	Create(ctx context.Context, entry *activityDatamodel.Entry) error
	ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]*activityDatamodel.Entry, error)
}

// MembershipChecker gates activity reads on project membership.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	repo    Repository
	members MembershipChecker
	logger  *slog.Logger
}

func NewService(repo Repository, members MembershipChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		members: members,
		logger:  logger,
	}
}

// recordedEvents are the event types the recorder persists.
var recordedEvents = []string{
	events.EventProjectCreated,
	events.EventProjectUpdated,
	events.EventProjectDeleted,
	events.EventMemberJoined,
	events.EventInviteSent,
	events.EventColumnCreated,
	events.EventColumnReordered,
	events.EventCardCreated,
	events.EventCardUpdated,
	events.EventCardMoved,
	events.EventCardDeleted,
}

// RegisterSubscribers wires the recorder to every board and project event.
func (s *Service) RegisterSubscribers(bus *events.EventBus) {
	for _, eventType := range recordedEvents {
		bus.Subscribe(eventType, s.handleEvent)
	}
}

// handleEvent persists one activity entry per received event.
func (s *Service) handleEvent(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected payload for event %s", event.EventType())
	}

	entry := &activityDatamodel.Entry{
		ProjectID:  asInt64(data["project_id"]),
		ActorID:    asInt64(data["actor_id"]),
		Action:     event.EventType(),
		EntityType: asString(data["entity_type"]),
		EntityID:   asInt64(data["entity_id"]),
		Detail:     asString(data["detail"]),
		CreatedAt:  event.OccurredAt(),
	}
	if entry.ProjectID == 0 {
		return fmt.Errorf("event %s carries no project id", event.EventType())
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivities returns the project's history, newest first.
func (s *Service) ListActivities(ctx context.Context, userID, projectID int64, limit, offset int) ([]*Entry, error) {
	member, err := s.members.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, internal.ErrProjectNotFound
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list activities", "error", err, "project_id", projectID)
		return nil, err
	}

	entries := make([]*Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, FromDataModel(rec))
	}
	return entries, nil
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
