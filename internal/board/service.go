package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/taskboard/internal"
	boardDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/board"
	"github.com/frahmantamala/taskboard/internal/core/events"
)

// RepositoryAPI is the persistence surface for board columns and cards.
// Ordering invariants (contiguous positions starting at 1) are maintained
// inside repository transactions.
type RepositoryAPI interface {
	CreateColumn(ctx context.Context, col *boardDatamodel.Column) error
	GetColumnByID(ctx context.Context, id int64) (*boardDatamodel.Column, error)
	ListColumns(ctx context.Context, projectID int64) ([]*boardDatamodel.Column, error)
	RenameColumn(ctx context.Context, id int64, name string) error
	DeleteColumn(ctx context.Context, id int64) error
	ReorderColumns(ctx context.Context, projectID int64, orderedIDs []int64) error

	CreateCard(ctx context.Context, card *boardDatamodel.Card) error
	GetCardByID(ctx context.Context, id int64) (*boardDatamodel.Card, error)
	ListCards(ctx context.Context, projectID int64) ([]*boardDatamodel.Card, error)
	UpdateCard(ctx context.Context, card *boardDatamodel.Card) error
	DeleteCard(ctx context.Context, id int64) error
	MoveCard(ctx context.Context, cardID, toColumnID int64, position int) error
}

// MembershipChecker gates board access on project membership.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
}

type Service struct {
	repo     RepositoryAPI
	members  MembershipChecker
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, members MembershipChecker, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		members:  members,
		eventBus: eventBus,
		logger:   logger,
	}
}

// GetBoard returns the project's columns in order, each carrying its cards
// in order.
func (s *Service) GetBoard(ctx context.Context, userID, projectID int64) ([]*Column, error) {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	colRecords, err := s.repo.ListColumns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cardRecords, err := s.repo.ListCards(ctx, projectID)
	if err != nil {
		return nil, err
	}

	columns := make([]*Column, 0, len(colRecords))
	byColumn := make(map[int64]*Column, len(colRecords))
	for _, rec := range colRecords {
		col := ColumnFromDataModel(rec)
		col.Cards = []*Card{}
		columns = append(columns, col)
		byColumn[col.ID] = col
	}
	for _, rec := range cardRecords {
		if col, ok := byColumn[rec.ColumnID]; ok {
			col.Cards = append(col.Cards, CardFromDataModel(rec))
		}
	}
	return columns, nil
}

// CreateColumn appends a column at the end of the board.
func (s *Service) CreateColumn(ctx context.Context, userID, projectID int64, dto CreateColumnDTO) (*Column, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	rec := &boardDatamodel.Column{
		ProjectID: projectID,
		Name:      dto.Name,
	}
	if err := s.repo.CreateColumn(ctx, rec); err != nil {
		s.logger.Error("failed to create column", "error", err, "project_id", projectID)
		return nil, err
	}

	s.publish(ctx, events.EventColumnCreated, projectID, userID, "column", rec.ID, rec.Name)
	return ColumnFromDataModel(rec), nil
}

func (s *Service) RenameColumn(ctx context.Context, userID, projectID, columnID int64, dto RenameColumnDTO) (*Column, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.projectColumn(ctx, userID, projectID, columnID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RenameColumn(ctx, rec.ID, dto.Name); err != nil {
		s.logger.Error("failed to rename column", "error", err, "column_id", columnID)
		return nil, err
	}

	rec.Name = dto.Name
	return ColumnFromDataModel(rec), nil
}

// DeleteColumn removes the column together with its cards and closes the
// position gap it leaves.
func (s *Service) DeleteColumn(ctx context.Context, userID, projectID, columnID int64) error {
	rec, err := s.projectColumn(ctx, userID, projectID, columnID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteColumn(ctx, rec.ID); err != nil {
		s.logger.Error("failed to delete column", "error", err, "column_id", columnID)
		return err
	}

	s.logger.Info("column deleted", "column_id", columnID, "project_id", projectID)
	return nil
}

// ReorderColumns replaces the board's column order. The submitted ids must
// be exactly the project's columns, each once.
func (s *Service) ReorderColumns(ctx context.Context, userID, projectID int64, dto ReorderColumnsDTO) ([]*Column, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListColumns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(existing) != len(dto.ColumnIDs) {
		return nil, internal.ErrInvalidReference
	}
	known := make(map[int64]struct{}, len(existing))
	for _, col := range existing {
		known[col.ID] = struct{}{}
	}
	for _, id := range dto.ColumnIDs {
		if _, ok := known[id]; !ok {
			return nil, internal.ErrInvalidReference
		}
	}

	if err := s.repo.ReorderColumns(ctx, projectID, dto.ColumnIDs); err != nil {
		s.logger.Error("failed to reorder columns", "error", err, "project_id", projectID)
		return nil, err
	}

	s.publish(ctx, events.EventColumnReordered, projectID, userID, "column", 0, fmt.Sprintf("%d columns", len(dto.ColumnIDs)))

	records, err := s.repo.ListColumns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	columns := make([]*Column, 0, len(records))
	for _, rec := range records {
		columns = append(columns, ColumnFromDataModel(rec))
	}
	return columns, nil
}

// CreateCard appends a card at the end of its column.
func (s *Service) CreateCard(ctx context.Context, userID, projectID int64, dto CreateCardDTO) (*Card, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.projectColumn(ctx, userID, projectID, dto.ColumnID); err != nil {
		return nil, err
	}

	rec := &boardDatamodel.Card{
		ProjectID:   projectID,
		ColumnID:    dto.ColumnID,
		Title:       dto.Title,
		Description: dto.Description,
		AssigneeID:  dto.AssigneeID,
		DueDate:     dto.DueDate,
	}
	if err := s.repo.CreateCard(ctx, rec); err != nil {
		s.logger.Error("failed to create card", "error", err, "project_id", projectID, "column_id", dto.ColumnID)
		return nil, err
	}

	s.publish(ctx, events.EventCardCreated, projectID, userID, "card", rec.ID, rec.Title)
	return CardFromDataModel(rec), nil
}

func (s *Service) GetCard(ctx context.Context, userID, projectID, cardID int64) (*Card, error) {
	rec, err := s.projectCard(ctx, userID, projectID, cardID)
	if err != nil {
		return nil, err
	}
	return CardFromDataModel(rec), nil
}

func (s *Service) UpdateCard(ctx context.Context, userID, projectID, cardID int64, dto UpdateCardDTO) (*Card, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.projectCard(ctx, userID, projectID, cardID)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		rec.Title = *dto.Title
	}
	if dto.Description != nil {
		rec.Description = *dto.Description
	}
	if dto.AssigneeID != nil {
		rec.AssigneeID = dto.AssigneeID
	}
	if dto.DueDate != nil {
		rec.DueDate = dto.DueDate
	}

	if err := s.repo.UpdateCard(ctx, rec); err != nil {
		s.logger.Error("failed to update card", "error", err, "card_id", cardID)
		return nil, err
	}

	s.publish(ctx, events.EventCardUpdated, projectID, userID, "card", cardID, rec.Title)
	return CardFromDataModel(rec), nil
}

func (s *Service) DeleteCard(ctx context.Context, userID, projectID, cardID int64) error {
	rec, err := s.projectCard(ctx, userID, projectID, cardID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCard(ctx, rec.ID); err != nil {
		s.logger.Error("failed to delete card", "error", err, "card_id", cardID)
		return err
	}

	s.publish(ctx, events.EventCardDeleted, projectID, userID, "card", cardID, rec.Title)
	return nil
}

// MoveCard relocates a card to a column position. The target column must
// belong to the same project; positions in both columns are resequenced in
// one transaction.
func (s *Service) MoveCard(ctx context.Context, userID, projectID, cardID int64, dto MoveCardDTO) (*Card, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.projectCard(ctx, userID, projectID, cardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projectColumn(ctx, userID, projectID, dto.ColumnID); err != nil {
		return nil, err
	}

	if err := s.repo.MoveCard(ctx, rec.ID, dto.ColumnID, dto.Position); err != nil {
		s.logger.Error("failed to move card", "error", err, "card_id", cardID, "to_column", dto.ColumnID)
		return nil, err
	}

	moved, err := s.repo.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if moved == nil {
		return nil, internal.ErrCardNotFound
	}

	s.publish(ctx, events.EventCardMoved, projectID, userID, "card", cardID, fmt.Sprintf("to column %d position %d", moved.ColumnID, moved.Position))
	return CardFromDataModel(moved), nil
}

func (s *Service) requireMember(ctx context.Context, projectID, userID int64) error {
	member, err := s.members.IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !member {
		return internal.ErrProjectNotFound
	}
	return nil
}

func (s *Service) projectColumn(ctx context.Context, userID, projectID, columnID int64) (*boardDatamodel.Column, error) {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ProjectID != projectID {
		return nil, internal.ErrColumnNotFound
	}
	return rec, nil
}

func (s *Service) projectCard(ctx context.Context, userID, projectID, cardID int64) (*boardDatamodel.Card, error) {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ProjectID != projectID {
		return nil, internal.ErrCardNotFound
	}
	return rec, nil
}

func (s *Service) publish(ctx context.Context, eventType string, projectID, actorID int64, entityType string, entityID int64, detail string) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events.NewActivityEvent(eventType, projectID, actorID, entityType, entityID, detail)); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", eventType)
	}
}
