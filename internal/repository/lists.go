package repository

import (
	"context"
	"slices"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
)

// ListKind selects one of the simple identifier lists.
type ListKind string

const (
	ListJoinedGroups ListKind = "joined-groups"
	ListAddedFriends ListKind = "added-friends"
)

// Key returns the store key of the list, or "" for an unknown kind.
func (k ListKind) Key() string {
	switch k {
	case ListJoinedGroups:
		return JoinedGroupsKey
	case ListAddedFriends:
		return AddedFriendsKey
	default:
		return ""
	}
}

// ListRepository stores flat identifier lists.
type ListRepository interface {
	Load(ctx context.Context, kind ListKind) ([]string, error)
	// Toggle adds id when missing and removes it otherwise, returning the new
	// list. On a quota error the returned list is still the toggled one.
	Toggle(ctx context.Context, kind ListKind, id string) ([]string, error)
}

type listRepository struct {
	lists *family[[]string]
}

// NewListRepository returns a new ListRepository implementation.
func NewListRepository(store kvstore.Store, c codec.Codec) ListRepository {
	return &listRepository{
		lists: newFamily("lists", store, c, emptySlice[string](), normalizeSlice[string](nil)),
	}
}

func (r *listRepository) Load(ctx context.Context, kind ListKind) ([]string, error) {
	key := kind.Key()
	if key == "" {
		return nil, models.NewValidationError("unknown list " + string(kind))
	}
	return r.lists.load(ctx, key), nil
}

func (r *listRepository) Toggle(ctx context.Context, kind ListKind, id string) ([]string, error) {
	list, err := r.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	if idx := slices.Index(list, id); idx >= 0 {
		list = slices.Delete(list, idx, idx+1)
	} else {
		list = append(list, id)
	}
	return list, r.lists.save(ctx, kind.Key(), list)
}
