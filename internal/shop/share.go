package shop

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

// SharedProject is the public, read-only view of a shared project.
// It carries no owner data.
type SharedProject struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	ClientName  string               `json:"clientName"`
	StartDate   *time.Time           `json:"startDate,omitempty"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
	Cost        costing.Breakdown    `json:"cost"`
}

const shareAttempts = 3

// ShareProject issues a public token for the project. Sharing an already
// shared project keeps its token.
func (s *Service) ShareProject(ctx context.Context, userID, projectID string) (_ *models.Project, err error) {
	ctx, span := tracing.Start(ctx, "shop.ShareProject", attribute.String("grain.project_id", projectID))
	defer func() { tracing.End(span, err) }()

	p, err := s.activeProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if p.Shared() {
		return p, nil
	}

	for attempt := 0; attempt < shareAttempts; attempt++ {
		token := ksuid.New().String()
		p.ShareToken = &token
		p.UpdatedAt = s.now()
		err = s.store.Projects().Update(ctx, p)
		if !errors.Is(err, store.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UnshareProject revokes the public token of the project
func (s *Service) UnshareProject(ctx context.Context, userID, projectID string) (_ *models.Project, err error) {
	ctx, span := tracing.Start(ctx, "shop.UnshareProject", attribute.String("grain.project_id", projectID))
	defer func() { tracing.End(span, err) }()

	p, err := s.activeProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Shared() {
		return p, nil
	}
	p.ShareToken = nil
	p.UpdatedAt = s.now()
	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SharedProject resolves a public token. Unknown tokens and trashed projects
// are reported as store.ErrNotFound.
func (s *Service) SharedProject(ctx context.Context, token string) (_ *SharedProject, err error) {
	ctx, span := tracing.Start(ctx, "shop.SharedProject")
	defer func() { tracing.End(span, err) }()

	if token == "" {
		return nil, store.ErrNotFound
	}
	p, err := s.store.GetProjectByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, store.ErrNotFound
	}

	breakdown, err := s.cost(ctx, p)
	if err != nil {
		return nil, err
	}
	return &SharedProject{
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		ClientName:  p.ClientName,
		StartDate:   p.StartDate,
		DueDate:     p.DueDate,
		CompletedAt: p.CompletedAt,
		Cost:        *breakdown,
	}, nil
}
