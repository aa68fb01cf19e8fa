// Package models contains domain models for sitelog.
package models

import "time"

// Project is a construction job site.
type Project struct {
	CreatedAt time.Time `json:"created_at"`
	Location  *string   `json:"location,omitempty"`
	Client    *string   `json:"client,omitempty"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
}

// Subcontractor is an outside company that can be recorded on a daily log.
type Subcontractor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Crew is a named group of crew members.
type Crew struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Members []CrewMember `json:"members"`
}

// CrewMember is a person on a crew. Everything but the name is optional.
type CrewMember struct {
	Role       *string  `json:"role,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
	Email      *string  `json:"email,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	ID         string   `json:"id"`
	CrewID     string   `json:"crew_id"`
	Name       string   `json:"name"`
}

// ProjectInput is the payload for creating a project.
type ProjectInput struct {
	Location *string `json:"location,omitempty"`
	Client   *string `json:"client,omitempty"`
	Name     string  `json:"name"`
}

// CrewMemberInput is the payload for adding a member to a crew.
type CrewMemberInput struct {
	Role       *string  `json:"role,omitempty" yaml:"role"`
	HourlyRate *float64 `json:"hourly_rate,omitempty" yaml:"hourly_rate"`
	Phone      *string  `json:"phone,omitempty" yaml:"phone"`
	Email      *string  `json:"email,omitempty" yaml:"email"`
	Notes      *string  `json:"notes,omitempty" yaml:"notes"`
	Name       string   `json:"name" yaml:"name"`
}

// StringValue dereferences an optional string, returning "" when unset.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString returns nil for blank strings.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
