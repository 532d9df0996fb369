package repository

import (
	"context"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
)

// ConnectionRepository stores the directed follow graph and the list of users
// the supervisor tracks.
type ConnectionRepository interface {
	Load(ctx context.Context) models.Connections
	Save(ctx context.Context, graph models.Connections) error
	LoadTracking(ctx context.Context) []string
	SaveTracking(ctx context.Context, tracked []string) error
}

type connectionRepository struct {
	graph    *family[models.Connections]
	tracking *family[[]string]
}

// NewConnectionRepository returns a new ConnectionRepository implementation.
func NewConnectionRepository(store kvstore.Store, c codec.Codec) ConnectionRepository {
	return &connectionRepository{
		graph: newFamily("connections", store, c,
			func() models.Connections { return models.Connections{} },
			func(g *models.Connections) { g.Normalize() }),
		tracking: newFamily("tracking", store, c, emptySlice[string](), normalizeSlice[string](nil)),
	}
}

func (r *connectionRepository) Load(ctx context.Context) models.Connections {
	return r.graph.load(ctx, ConnectionsKey)
}

func (r *connectionRepository) Save(ctx context.Context, graph models.Connections) error {
	return r.graph.save(ctx, ConnectionsKey, graph)
}

func (r *connectionRepository) LoadTracking(ctx context.Context) []string {
	return r.tracking.load(ctx, TrackingKey)
}

func (r *connectionRepository) SaveTracking(ctx context.Context, tracked []string) error {
	return r.tracking.save(ctx, TrackingKey, tracked)
}
