package server

import (
	"opcdiary/internal/models"
	"opcdiary/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ConnectionsResponse groups the caller's relations.
type ConnectionsResponse struct {
	Friends         []string       `json:"friends"`
	Followers       []string       `json:"followers"`
	PendingRequests []string       `json:"pendingRequests"`
	SentRequests    []string       `json:"sentRequests"`
	Directory       []models.Group `json:"directory"`
}

// RelationResponse is the caller's relation towards one identity.
type RelationResponse struct {
	Name   string           `json:"name"`
	Status service.Relation `json:"status"`
}

// GetConnections handles GET /api/connections
func (s *Server) GetConnections(c *fiber.Ctx) error {
	ctx := c.UserContext()
	me := actorFrom(c).Name
	dir := s.svcs.Graph.Directory().All()
	if dir == nil {
		dir = []models.Group{}
	}
	return respond(c, ConnectionsResponse{
		Friends:         nonNil(s.svcs.Graph.Friends(ctx, me)),
		Followers:       nonNil(s.svcs.Graph.Followers(ctx, me)),
		PendingRequests: nonNil(s.svcs.Graph.PendingRequests(ctx, me)),
		SentRequests:    nonNil(s.svcs.Graph.SentRequests(ctx, me)),
		Directory:       dir,
	}, nil)
}

// GetConnectionStatus handles GET /api/connections/:name/status
func (s *Server) GetConnectionStatus(c *fiber.Ctx) error {
	name := param(c, "name")
	rel := s.svcs.Graph.Status(c.UserContext(), actorFrom(c).Name, name)
	return respond(c, RelationResponse{Name: name, Status: rel}, nil)
}

// ToggleFollow handles POST /api/connections/:name/toggle. Both sides rescan
// so a new request or friendship shows up right away.
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	me := actorFrom(c).Name
	name := param(c, "name")
	rel, err := s.svcs.Graph.ToggleFollow(c.UserContext(), me, name)
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	s.nudge(c, name, me)
	return respond(c, RelationResponse{Name: name, Status: rel}, err)
}

// GetList handles GET /api/lists/:kind
func (s *Server) GetList(c *fiber.Ctx) error {
	list, err := s.svcs.Lists.List(c.UserContext(), c.Params("kind"))
	return respond(c, list, err)
}

// ToggleListItem handles POST /api/lists/:kind/:id/toggle
func (s *Server) ToggleListItem(c *fiber.Ctx) error {
	list, err := s.svcs.Lists.Toggle(c.UserContext(), c.Params("kind"), param(c, "id"))
	return respond(c, list, err)
}

// GetTracking handles GET /api/supervisor/tracking
func (s *Server) GetTracking(c *fiber.Ctx) error {
	return respond(c, s.svcs.Graph.Tracked(c.UserContext()), nil)
}

// ToggleTracking handles POST /api/supervisor/tracking/:name/toggle
func (s *Server) ToggleTracking(c *fiber.Ctx) error {
	tracked, err := s.svcs.Graph.ToggleTracking(c.UserContext(), param(c, "name"))
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	s.nudge(c, service.SupervisorName)
	return respond(c, tracked, err)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
