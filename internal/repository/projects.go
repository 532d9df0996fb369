package repository

import (
	"context"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
)

// ProjectRepository stores each owner's projects under one key.
type ProjectRepository interface {
	Load(ctx context.Context, owner string) []models.Project
	Save(ctx context.Context, owner string, projects []models.Project) error
}

type projectRepository struct {
	projects *family[[]models.Project]
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(store kvstore.Store, c codec.Codec) ProjectRepository {
	return &projectRepository{
		projects: newFamily("projects", store, c, emptySlice[models.Project](), normalizeSlice(func(p *models.Project) { p.Normalize() })),
	}
}

func (r *projectRepository) Load(ctx context.Context, owner string) []models.Project {
	return r.projects.load(ctx, ProjectsKey(owner))
}

func (r *projectRepository) Save(ctx context.Context, owner string, projects []models.Project) error {
	return r.projects.save(ctx, ProjectsKey(owner), projects)
}
