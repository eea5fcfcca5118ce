package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chronos/internal/chronos"
	"github.com/starford/chronos/internal/models"
	"github.com/starford/chronos/internal/service"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = service.NoteDetail

// NoteListResponse wraps a timeline listing.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Order string        `json:"order" example:"newest" validate:"required"`
}

// NeighborsResponse lists the notes linked with a note in either direction.
type NeighborsResponse struct {
	Path      string        `json:"path" example:"notes/hello.md" validate:"required"`
	Neighbors []models.Note `json:"neighbors" validate:"required"`
}

// CandidatesResponse lists parent candidates, best first.
type CandidatesResponse struct {
	Path       string              `json:"path" example:"notes/hello.md" validate:"required"`
	Candidates []chronos.Candidate `json:"candidates" validate:"required"`
}

// AddParentsRequest is the request body for linking a note under parents.
type AddParentsRequest struct {
	Parents []string `json:"parents" example:"maps/Topics.md" validate:"required"`
}

// Validate checks the request.
func (r AddParentsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Parents, validation.Required, validation.Each(validation.Required)),
	)
}

// AddParentsResponse echoes the linked child and parents.
type AddParentsResponse struct {
	Child   string   `json:"child" example:"notes/hello.md" validate:"required"`
	Parents []string `json:"parents" validate:"required"`
}
