// Package models contains the entities persisted in the key-value store and
// the error taxonomy shared by every layer.
package models

import "strings"

// UserProfile is the identity and public card of one account. CompanyName is
// the primary key: every per-user store key is derived from it.
type UserProfile struct {
	CompanyName  string `json:"companyName"`
	Description  string `json:"description"`
	DevTime      string `json:"devTime"`
	Audience     string `json:"audience"`
	Valuation    string `json:"valuation"`
	Avatar       string `json:"avatar,omitempty"`
	ProjectURL   string `json:"projectUrl,omitempty"`
	ProjectCover string `json:"projectCover,omitempty"`
	Password     string `json:"password"`
	Title        string `json:"title,omitempty"`
}

// PublicProfile is a UserProfile without its password, safe to hand to other
// identities.
type PublicProfile struct {
	CompanyName  string `json:"companyName"`
	Description  string `json:"description"`
	DevTime      string `json:"devTime"`
	Audience     string `json:"audience"`
	Valuation    string `json:"valuation"`
	Avatar       string `json:"avatar,omitempty"`
	ProjectURL   string `json:"projectUrl,omitempty"`
	ProjectCover string `json:"projectCover,omitempty"`
	Title        string `json:"title,omitempty"`
}

// Public strips the password.
func (u UserProfile) Public() PublicProfile {
	return PublicProfile{
		CompanyName:  u.CompanyName,
		Description:  u.Description,
		DevTime:      u.DevTime,
		Audience:     u.Audience,
		Valuation:    u.Valuation,
		Avatar:       u.Avatar,
		ProjectURL:   u.ProjectURL,
		ProjectCover: u.ProjectCover,
		Title:        u.Title,
	}
}

// SameName compares two company names the way login does.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ProfilePatch carries the editable profile fields. Nil means unchanged.
type ProfilePatch struct {
	Description  *string `json:"description"`
	DevTime      *string `json:"devTime"`
	Audience     *string `json:"audience"`
	Valuation    *string `json:"valuation"`
	Avatar       *string `json:"avatar"`
	ProjectURL   *string `json:"projectUrl"`
	ProjectCover *string `json:"projectCover"`
	Password     *string `json:"password"`
	Title        *string `json:"title"`
}

// Apply writes the non-nil fields of p onto u.
func (p ProfilePatch) Apply(u *UserProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Description, p.Description)
	set(&u.DevTime, p.DevTime)
	set(&u.Audience, p.Audience)
	set(&u.Valuation, p.Valuation)
	set(&u.Avatar, p.Avatar)
	set(&u.ProjectURL, p.ProjectURL)
	set(&u.ProjectCover, p.ProjectCover)
	set(&u.Password, p.Password)
	set(&u.Title, p.Title)
}

// Group is an entry of the simulated directory: a community or a
// non-interactive counterparty.
type Group struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Avatar      string `json:"avatar" yaml:"avatar"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type" yaml:"type"`
}

// Group types.
const (
	GroupTypeGroup = "group"
	GroupTypeUser  = "user"
)
