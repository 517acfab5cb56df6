// Package shop is the application layer of Grain. It owns record lifecycles,
// project composition, costing, sharing and the dashboard, on top of a
// store.Store.
package shop

import (
	"time"

	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

// Service exposes one Resource per record type plus project operations
type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time

	Lumber      *Resource[models.Lumber, *models.Lumber]
	Finishes    *Resource[models.Finish, *models.Finish]
	SheetGoods  *Resource[models.SheetGood, *models.SheetGood]
	Consumables *Resource[models.Consumable, *models.Consumable]
	Tools       *Resource[models.Tool, *models.Tool]
	Projects    *Resource[models.Project, *models.Project]
}

// New creates the service
func New(s store.Store, log *zap.Logger) *Service {
	svc := &Service{store: s, log: log.Named("shop"), now: models.Now}
	now := func() time.Time { return svc.now() }

	svc.Lumber = newResource[models.Lumber]("lumber", s.Lumber(), now)
	svc.Finishes = newResource[models.Finish]("finish", s.Finishes(), now)
	svc.SheetGoods = newResource[models.SheetGood]("sheet_good", s.SheetGoods(), now)
	svc.Consumables = newResource[models.Consumable]("consumable", s.Consumables(), now)
	svc.Tools = newResource[models.Tool]("tool", s.Tools(), now)
	svc.Projects = newResource[models.Project]("project", s.Projects(), now)
	// share tokens only change through ShareProject and UnshareProject
	svc.Projects.guard = func(stored, updated *models.Project) {
		updated.ShareToken = stored.ShareToken
	}
	return svc
}

// Store returns the underlying store
func (s *Service) Store() store.Store {
	return s.store
}
