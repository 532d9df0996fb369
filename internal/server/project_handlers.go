package server

import (
	"opcdiary/internal/models"
	"opcdiary/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProjectsResponse is the diary currently on screen.
type ProjectsResponse struct {
	Owner       string           `json:"owner"`
	CanEdit     bool             `json:"canEdit"`
	OpenProject string           `json:"openProject,omitempty"`
	Projects    []models.Project `json:"projects"`
}

// CreateProjectRequest represents the body of POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateStatsRequest sets one stats field to a display string.
type UpdateStatsRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ContentRequest carries free text: an entry edit or a comment.
type ContentRequest struct {
	Content string `json:"content"`
}

// GetProjects handles GET /api/projects
func (s *Server) GetProjects(c *fiber.Ctx) error {
	m := sessionFrom(c)
	st := m.State()
	return respond(c, ProjectsResponse{
		Owner:       m.Viewing(),
		CanEdit:     st.CanEdit,
		OpenProject: st.OpenProject,
		Projects:    st.Projects,
	}, nil)
}

// CreateProject handles POST /api/projects
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	book, err := sessionFrom(c).EditableBook()
	if err != nil {
		return respondError(c, err)
	}
	p, err := s.svcs.Diary.CreateProject(c.UserContext(), book, req.Name, req.Description)
	return respondStatus(c, fiber.StatusCreated, p, err)
}

// OpenProject handles POST /api/projects/:id/open
func (s *Server) OpenProject(c *fiber.Ctx) error {
	p, err := sessionFrom(c).OpenProject(c.Params("id"))
	return respond(c, p, err)
}

// CloseProject handles POST /api/projects/close
func (s *Server) CloseProject(c *fiber.Ctx) error {
	m := sessionFrom(c)
	m.CloseProject()
	return respond(c, m.State(), nil)
}

// UpdateStats handles PUT /api/projects/:id/stats
func (s *Server) UpdateStats(c *fiber.Ctx) error {
	var req UpdateStatsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	book, err := sessionFrom(c).EditableBook()
	if err != nil {
		return respondError(c, err)
	}
	p, err := s.svcs.Diary.UpdateStats(c.UserContext(), book, c.Params("id"), req.Field, req.Value)
	return respond(c, p, err)
}

// PublishEntry handles POST /api/projects/:id/entries. The response is held
// for the publish delay.
func (s *Server) PublishEntry(c *fiber.Ctx) error {
	var req service.EntryInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	book, err := sessionFrom(c).EditableBook()
	if err != nil {
		return respondError(c, err)
	}
	p, err := s.svcs.Diary.PublishEntry(c.UserContext(), book, c.Params("id"), req)
	return respondStatus(c, fiber.StatusCreated, p, err)
}

// EditEntry handles PUT /api/projects/:id/entries/:entryId
func (s *Server) EditEntry(c *fiber.Ctx) error {
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	book, err := sessionFrom(c).EditableBook()
	if err != nil {
		return respondError(c, err)
	}
	p, err := s.svcs.Diary.EditEntry(c.UserContext(), book, c.Params("id"), c.Params("entryId"), req.Content)
	return respond(c, p, err)
}

// DeleteEntry handles DELETE /api/projects/:id/entries/:entryId
func (s *Server) DeleteEntry(c *fiber.Ctx) error {
	book, err := sessionFrom(c).EditableBook()
	if err != nil {
		return respondError(c, err)
	}
	p, err := s.svcs.Diary.DeleteEntry(c.UserContext(), book, c.Params("id"), c.Params("entryId"))
	return respond(c, p, err)
}

// AddEntryComment handles POST /api/projects/:id/entries/:entryId/comments.
// Any logged-in identity may comment on the diary it is viewing.
func (s *Server) AddEntryComment(c *fiber.Ctx) error {
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	book, author, err := sessionFrom(c).CommentContext()
	if err != nil {
		return respondError(c, err)
	}
	comment, err := s.svcs.Diary.AddComment(c.UserContext(), book, c.Params("id"), c.Params("entryId"), author, req.Content)
	return respondStatus(c, fiber.StatusCreated, comment, err)
}
