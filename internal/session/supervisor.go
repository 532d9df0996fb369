package session

import (
	"fmt"

	"opcdiary/internal/models"
	"opcdiary/internal/service"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSupervisorName is the login name of the master credential.
	DefaultSupervisorName = "daniel"
	// DefaultSupervisorPassword must be overridden outside development.
	DefaultSupervisorPassword = "generasia"
)

// Supervisor is the single master credential. Only its bcrypt hash is kept
// in memory.
type Supervisor struct {
	name string
	hash []byte
}

// NewSupervisor hashes password with the given bcrypt cost. A cost of 0 uses
// bcrypt.DefaultCost.
func NewSupervisor(name, password string, cost int) (*Supervisor, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("supervisor name and password are required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash supervisor password: %w", err)
	}
	return &Supervisor{name: name, hash: hash}, nil
}

// Matches reports whether name (case-insensitive) and password are the
// master credential.
func (s *Supervisor) Matches(name, password string) bool {
	if s == nil || !models.SameName(name, s.name) {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
}

// SupervisorProfile is the synthetic profile shown for the supervisor. It is
// never persisted.
func SupervisorProfile() models.UserProfile {
	return models.UserProfile{
		CompanyName: service.SupervisorName,
		Description: "Overseeing operations.",
		DevTime:     "Infinite",
		Audience:    "All",
		Valuation:   "∞",
		Title:       "System Admin",
	}
}
