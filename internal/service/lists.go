package service

import (
	"context"

	"opcdiary/internal/repository"
)

// ListService exposes the flat joined-groups and added-friends lists.
type ListService struct {
	lists repository.ListRepository
}

// NewListService returns a new ListService.
func NewListService(lists repository.ListRepository) *ListService {
	return &ListService{lists: lists}
}

// List returns the identifiers in the list named kind.
func (s *ListService) List(ctx context.Context, kind string) ([]string, error) {
	return s.lists.Load(ctx, repository.ListKind(kind))
}

// Toggle adds or removes id from the list named kind.
func (s *ListService) Toggle(ctx context.Context, kind, id string) ([]string, error) {
	return s.lists.Toggle(ctx, repository.ListKind(kind), id)
}
