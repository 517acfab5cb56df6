package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/psantana5/grain/pkg/models"
)

// entity is satisfied by pointers to the owned record types
type entity[T any] interface {
	*T
	models.Entity
}

// MemoryStore is an in-memory implementation of the data store
type MemoryStore struct {
	lumber      *memCollection[models.Lumber, *models.Lumber]
	finishes    *memCollection[models.Finish, *models.Finish]
	sheetGoods  *memCollection[models.SheetGood, *models.SheetGood]
	consumables *memCollection[models.Consumable, *models.Consumable]
	tools       *memCollection[models.Tool, *models.Tool]
	projects    *memCollection[models.Project, *models.Project]

	items   map[string][]models.ProjectItem // by project ID
	itemsMu sync.RWMutex

	users    map[string]*models.User
	sessions map[string]*models.Session
	authMu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:    make(map[string][]models.ProjectItem),
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.Session),
	}
	s.lumber = newMemCollection[models.Lumber](s, TableLumber, models.ItemLumber,
		func(l *models.Lumber) string { return l.Species })
	s.finishes = newMemCollection[models.Finish](s, TableFinishes, models.ItemFinish,
		func(f *models.Finish) string { return f.Name })
	s.sheetGoods = newMemCollection[models.SheetGood](s, TableSheetGoods, models.ItemSheetGood,
		func(g *models.SheetGood) string { return g.Name })
	s.consumables = newMemCollection[models.Consumable](s, TableConsumables, models.ItemConsumable,
		func(c *models.Consumable) string { return c.Name })
	s.tools = newMemCollection[models.Tool](s, TableTools, models.ItemTool,
		func(t *models.Tool) string { return t.Name })
	s.projects = newMemCollection[models.Project](s, TableProjects, "",
		func(p *models.Project) string { return p.Name })
	s.projects.conflicts = func(a, b *models.Project) bool {
		return a.Shared() && b.Shared() && *a.ShareToken == *b.ShareToken
	}
	return s
}

func (s *MemoryStore) Lumber() Collection[models.Lumber] { return s.lumber }
func (s *MemoryStore) Finishes() Collection[models.Finish] { return s.finishes }
func (s *MemoryStore) SheetGoods() Collection[models.SheetGood] { return s.sheetGoods }
func (s *MemoryStore) Consumables() Collection[models.Consumable] { return s.consumables }
func (s *MemoryStore) Tools() Collection[models.Tool] { return s.tools }
func (s *MemoryStore) Projects() Collection[models.Project] { return s.projects }

// memCollection keeps records by value so callers never share memory with the store
type memCollection[T any, PT entity[T]] struct {
	owner     *MemoryStore
	table     string
	kind      models.ItemKind // empty for projects
	name      func(PT) string
	conflicts func(a, b PT) bool
	records   map[string]T
	mu        sync.RWMutex
}

func newMemCollection[T any, PT entity[T]](owner *MemoryStore, table string, kind models.ItemKind, name func(PT) string) *memCollection[T, PT] {
	return &memCollection[T, PT]{
		owner:   owner,
		table:   table,
		kind:    kind,
		name:    name,
		records: make(map[string]T),
	}
}

func (c *memCollection[T, PT]) Create(ctx context.Context, item *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := PT(item).Meta().ID
	if _, exists := c.records[id]; exists {
		return ErrDuplicate
	}
	if err := c.checkConflicts(item); err != nil {
		return err
	}
	c.records[id] = *item
	return nil
}

func (c *memCollection[T, PT]) Get(ctx context.Context, userID, id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.lookup(userID, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (c *memCollection[T, PT]) List(ctx context.Context, userID string, filter ListFilter) ([]*T, error) {
	c.mu.RLock()
	search := strings.ToLower(filter.Search)
	out := make([]*T, 0)
	for _, rec := range c.records {
		rec := rec
		meta := PT(&rec).Meta()
		if meta.UserID != userID || !filter.matchesDeleted(meta.IsDeleted()) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.name(&rec)), search) {
			continue
		}
		out = append(out, &rec)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := PT(out[i]).Meta(), PT(out[j]).Meta()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (c *memCollection[T, PT]) Update(ctx context.Context, item *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := PT(item).Meta()
	existing, ok := c.lookup(meta.UserID, meta.ID)
	if !ok {
		return ErrNotFound
	}
	old := PT(&existing).Meta()
	if old.IsDeleted() {
		return ErrDeleted
	}
	if err := c.checkConflicts(item); err != nil {
		return err
	}

	updated := *item
	rec := PT(&updated).Meta()
	rec.CreatedAt = old.CreatedAt
	rec.DeletedAt = nil
	c.records[meta.ID] = updated
	return nil
}

func (c *memCollection[T, PT]) SoftDelete(ctx context.Context, userID, id string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.lookup(userID, id)
	if !ok {
		return ErrNotFound
	}
	meta := PT(&rec).Meta()
	if meta.IsDeleted() {
		return ErrDeleted
	}
	at = at.UTC()
	meta.DeletedAt = &at
	meta.UpdatedAt = at
	c.records[id] = rec
	return nil
}

func (c *memCollection[T, PT]) Restore(ctx context.Context, userID, id string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.lookup(userID, id)
	if !ok {
		return ErrNotFound
	}
	meta := PT(&rec).Meta()
	if !meta.IsDeleted() {
		return ErrNotDeleted
	}
	meta.DeletedAt = nil
	meta.UpdatedAt = at
	c.records[id] = rec
	return nil
}

func (c *memCollection[T, PT]) HardDelete(ctx context.Context, userID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.lookup(userID, id)
	if !ok {
		return ErrNotFound
	}
	if !PT(&rec).Meta().IsDeleted() {
		return ErrNotDeleted
	}
	delete(c.records, id)
	c.owner.dropItems(c.kind, []string{id})
	return nil
}

func (c *memCollection[T, PT]) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var purged []string
	for id, rec := range c.records {
		meta := PT(&rec).Meta()
		if meta.IsDeleted() && meta.DeletedAt.Before(before) {
			purged = append(purged, id)
			delete(c.records, id)
		}
	}
	c.owner.dropItems(c.kind, purged)
	return int64(len(purged)), nil
}

func (c *memCollection[T, PT]) lookup(userID, id string) (T, bool) {
	rec, ok := c.records[id]
	if !ok || PT(&rec).Meta().UserID != userID {
		var zero T
		return zero, false
	}
	return rec, true
}

func (c *memCollection[T, PT]) checkConflicts(item PT) error {
	if c.conflicts == nil {
		return nil
	}
	id := item.Meta().ID
	for otherID, rec := range c.records {
		if otherID != id && c.conflicts(item, &rec) {
			return ErrDuplicate
		}
	}
	return nil
}

func (c *memCollection[T, PT]) counts() RecordCount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rc := RecordCount{Table: c.table}
	for _, rec := range c.records {
		if PT(&rec).Meta().IsDeleted() {
			rc.Trashed++
		} else {
			rc.Active++
		}
	}
	return rc
}

// dropItems removes project lines for hard-deleted records of a kind.
// An empty kind means the IDs are projects.
func (s *MemoryStore) dropItems(kind models.ItemKind, ids []string) {
	if len(ids) == 0 {
		return
	}
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()

	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	if kind == "" {
		for id := range gone {
			delete(s.items, id)
		}
		return
	}
	for projectID, lines := range s.items {
		kept := lines[:0]
		for _, line := range lines {
			if line.Kind == kind && gone[line.ItemID] {
				continue
			}
			kept = append(kept, line)
		}
		s.items[projectID] = kept
	}
}

// Project lines

// ListProjectItems returns the lines of a project in sort order
func (s *MemoryStore) ListProjectItems(ctx context.Context, projectID string) ([]models.ProjectItem, error) {
	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()

	lines := s.items[projectID]
	out := make([]models.ProjectItem, len(lines))
	copy(out, lines)
	sortItems(out)
	return out, nil
}

// ReplaceProjectItems swaps every line of a project at once
func (s *MemoryStore) ReplaceProjectItems(ctx context.Context, projectID string, items []models.ProjectItem) error {
	seen := make(map[string]bool, len(items))
	lines := make([]models.ProjectItem, len(items))
	for i, item := range items {
		key := string(item.Kind) + "/" + item.ItemID
		if seen[key] {
			return ErrDuplicate
		}
		seen[key] = true
		item.ProjectID = projectID
		lines[i] = item
	}

	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	if len(lines) == 0 {
		delete(s.items, projectID)
		return nil
	}
	s.items[projectID] = lines
	return nil
}

// GetProjectByShareToken finds a project of any user by its share token
func (s *MemoryStore) GetProjectByShareToken(ctx context.Context, token string) (*models.Project, error) {
	s.projects.mu.RLock()
	defer s.projects.mu.RUnlock()

	for _, p := range s.projects.records {
		if p.Shared() && *p.ShareToken == token {
			p := p
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// Users and sessions

// CreateUser stores a new user; emails are unique
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

// GetUser retrieves a user by ID
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.authMu.RLock()
	defer s.authMu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail retrieves a user by normalized email
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.authMu.RLock()
	defer s.authMu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// CreateSession stores a new session
func (s *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ErrDuplicate
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession retrieves a session by ID
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.authMu.RLock()
	defer s.authMu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// DeleteSession removes a session
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before now
func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Maintenance

// PurgeDeleted hard-deletes every record trashed before the cutoff
func (s *MemoryStore) PurgeDeleted(ctx context.Context, before time.Time) (map[string]int64, error) {
	purgers := map[string]func(context.Context, time.Time) (int64, error){
		TableLumber:      s.lumber.PurgeDeleted,
		TableFinishes:    s.finishes.PurgeDeleted,
		TableSheetGoods:  s.sheetGoods.PurgeDeleted,
		TableConsumables: s.consumables.PurgeDeleted,
		TableTools:       s.tools.PurgeDeleted,
		TableProjects:    s.projects.PurgeDeleted,
	}
	out := make(map[string]int64, len(purgers))
	for table, purge := range purgers {
		n, err := purge(ctx, before)
		if err != nil {
			return out, err
		}
		out[table] = n
	}
	return out, nil
}

// RecordCounts reports active and trashed rows per table
func (s *MemoryStore) RecordCounts(ctx context.Context) ([]RecordCount, error) {
	return []RecordCount{
		s.lumber.counts(),
		s.finishes.counts(),
		s.sheetGoods.counts(),
		s.consumables.counts(),
		s.tools.counts(),
		s.projects.counts(),
	}, nil
}

// HealthCheck always succeeds for the memory store
func (s *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

// Vacuum is a no-op for the memory store
func (s *MemoryStore) Vacuum(ctx context.Context) error { return nil }

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error { return nil }

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortItems(items []models.ProjectItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		return items[i].ItemID < items[j].ItemID
	})
}
