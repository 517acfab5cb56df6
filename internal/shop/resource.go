package shop

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

type entity[T any] interface {
	*T
	models.Entity
}

// Resource is the create / read / update / trash / restore / destroy cycle
// shared by every owned record type.
type Resource[T any, PT entity[T]] struct {
	name string
	coll store.Collection[T]
	now  func() time.Time
	// guard copies fields callers may not change through Update from the stored record
	guard func(stored, updated PT)
}

func newResource[T any, PT entity[T]](name string, coll store.Collection[T], now func() time.Time) *Resource[T, PT] {
	return &Resource[T, PT]{name: name, coll: coll, now: now}
}

// Name is the record type this resource manages, e.g. "lumber"
func (r *Resource[T, PT]) Name() string {
	return r.name
}

func (r *Resource[T, PT]) span(ctx context.Context, op, userID string) (context.Context, func(error)) {
	ctx, span := tracing.Start(ctx, "shop."+r.name+"."+op,
		attribute.String("grain.kind", r.name),
		attribute.String("grain.user_id", userID))
	return ctx, func(err error) { tracing.End(span, err) }
}

// Create assigns an ID, the owner and timestamps, applies defaults and stores a valid record
func (r *Resource[T, PT]) Create(ctx context.Context, userID string, item *T) (_ *T, err error) {
	ctx, end := r.span(ctx, "Create", userID)
	defer func() { end(err) }()

	now := r.now()
	p := PT(item)
	if r.guard != nil {
		var blank T
		r.guard(PT(&blank), p)
	}
	*p.Meta() = models.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	normalize(p, now)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := r.coll.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// normalize applies defaults, including those that depend on the time of the change
func normalize(e models.Entity, now time.Time) {
	e.Normalize()
	if s, ok := e.(models.Stamper); ok {
		s.Stamp(now)
	}
}

// Get returns a record of the user, trashed or not
func (r *Resource[T, PT]) Get(ctx context.Context, userID, id string) (_ *T, err error) {
	ctx, end := r.span(ctx, "Get", userID)
	defer func() { end(err) }()
	return r.coll.Get(ctx, userID, id)
}

// List returns the user's records matching filter
func (r *Resource[T, PT]) List(ctx context.Context, userID string, filter store.ListFilter) (_ []*T, err error) {
	ctx, end := r.span(ctx, "List", userID)
	defer func() { end(err) }()
	return r.coll.List(ctx, userID, filter)
}

// Update loads an active record, applies the partial change and saves it
// after validation. Bookkeeping fields cannot be changed by apply.
func (r *Resource[T, PT]) Update(ctx context.Context, userID, id string, apply func(*T) error) (_ *T, err error) {
	ctx, end := r.span(ctx, "Update", userID)
	defer func() { end(err) }()

	item, err := r.coll.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p := PT(item)
	if p.Meta().IsDeleted() {
		return nil, store.ErrDeleted
	}

	stored := *item
	if err := apply(item); err != nil {
		return nil, err
	}
	if r.guard != nil {
		r.guard(PT(&stored), p)
	}
	meta := *PT(&stored).Meta()
	meta.UpdatedAt = r.now()
	*p.Meta() = meta

	normalize(p, meta.UpdatedAt)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := r.coll.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete moves a record to the trash
func (r *Resource[T, PT]) Delete(ctx context.Context, userID, id string) (_ *T, err error) {
	ctx, end := r.span(ctx, "Delete", userID)
	defer func() { end(err) }()

	if err := r.coll.SoftDelete(ctx, userID, id, r.now()); err != nil {
		return nil, err
	}
	return r.coll.Get(ctx, userID, id)
}

// Restore takes a record out of the trash
func (r *Resource[T, PT]) Restore(ctx context.Context, userID, id string) (_ *T, err error) {
	ctx, end := r.span(ctx, "Restore", userID)
	defer func() { end(err) }()

	if err := r.coll.Restore(ctx, userID, id, r.now()); err != nil {
		return nil, err
	}
	return r.coll.Get(ctx, userID, id)
}

// Destroy permanently removes a trashed record and the project lines pointing at it
func (r *Resource[T, PT]) Destroy(ctx context.Context, userID, id string) (err error) {
	ctx, end := r.span(ctx, "Destroy", userID)
	defer func() { end(err) }()
	return r.coll.HardDelete(ctx, userID, id)
}
