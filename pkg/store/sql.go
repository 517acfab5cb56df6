package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/grain/pkg/models"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL
type SQLStore struct {
	db       *sql.DB
	driver   string
	postgres bool

	lumber      *sqlCollection[models.Lumber, *models.Lumber]
	finishes    *sqlCollection[models.Finish, *models.Finish]
	sheetGoods  *sqlCollection[models.SheetGood, *models.SheetGood]
	consumables *sqlCollection[models.Consumable, *models.Consumable]
	tools       *sqlCollection[models.Tool, *models.Tool]
	projects    *sqlCollection[models.Project, *models.Project]
}

func newSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, postgres: driver == "postgres"}
	s.lumber = &sqlCollection[models.Lumber, *models.Lumber]{s: s, kind: lumberKind}
	s.finishes = &sqlCollection[models.Finish, *models.Finish]{s: s, kind: finishKind}
	s.sheetGoods = &sqlCollection[models.SheetGood, *models.SheetGood]{s: s, kind: sheetGoodKind}
	s.consumables = &sqlCollection[models.Consumable, *models.Consumable]{s: s, kind: consumableKind}
	s.tools = &sqlCollection[models.Tool, *models.Tool]{s: s, kind: toolKind}
	s.projects = &sqlCollection[models.Project, *models.Project]{s: s, kind: projectKind}

	if _, err := db.ExecContext(ctx, schemaFor(s.postgres)); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Lumber() Collection[models.Lumber] { return s.lumber }
func (s *SQLStore) Finishes() Collection[models.Finish] { return s.finishes }
func (s *SQLStore) SheetGoods() Collection[models.SheetGood] { return s.sheetGoods }
func (s *SQLStore) Consumables() Collection[models.Consumable] { return s.consumables }
func (s *SQLStore) Tools() Collection[models.Tool] { return s.tools }
func (s *SQLStore) Projects() Collection[models.Project] { return s.projects }

// Driver returns the database/sql driver name in use
func (s *SQLStore) Driver() string {
	return s.driver
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user text match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q execer, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const recordColumns = "id, user_id, created_at, updated_at, deleted_at"

// sqlCollection implements Collection for one table
type sqlCollection[T any, PT entity[T]] struct {
	s    *SQLStore
	kind sqlKind[T, PT]
}

func (c *sqlCollection[T, PT]) selectColumns() string {
	return recordColumns + ", " + strings.Join(c.kind.columns, ", ")
}

func (c *sqlCollection[T, PT]) scan(row interface{ Scan(...any) error }) (*T, error) {
	item := new(T)
	rec := PT(item).Meta()
	dest := append([]any{&rec.ID, &rec.UserID, timeDest{&rec.CreatedAt}, timeDest{&rec.UpdatedAt},
		nullTimeDest{&rec.DeletedAt}}, c.kind.targets(item)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *sqlCollection[T, PT]) Create(ctx context.Context, item *T) error {
	rec := PT(item).Meta()
	args := append([]any{rec.ID, rec.UserID, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), nullTime(rec.DeletedAt)},
		c.kind.values(item)...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.kind.table, c.selectColumns(), placeholders)
	if _, err := c.s.exec(ctx, c.s.db, query, args...); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to insert into %s: %w", c.kind.table, err)
	}
	return nil
}

func (c *sqlCollection[T, PT]) Get(ctx context.Context, userID, id string) (*T, error) {
	return c.get(ctx, c.s.db, userID, id)
}

func (c *sqlCollection[T, PT]) get(ctx context.Context, q querier, userID, id string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND user_id = ?", c.selectColumns(), c.kind.table)
	item, err := c.scan(q.QueryRowContext(ctx, c.s.rebind(query), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.kind.table, err)
	}
	return item, nil
}

func (c *sqlCollection[T, PT]) List(ctx context.Context, userID string, filter ListFilter) ([]*T, error) {
	var b strings.Builder
	args := []any{userID}
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE user_id = ?", c.selectColumns(), c.kind.table)

	switch {
	case filter.OnlyDeleted:
		b.WriteString(" AND deleted_at IS NOT NULL")
	case !filter.IncludeDeleted:
		b.WriteString(" AND deleted_at IS NULL")
	}
	if filter.Search != "" {
		if c.s.postgres {
			fmt.Fprintf(&b, ` AND %s ILIKE ? ESCAPE '\'`, c.kind.search)
		} else {
			fmt.Fprintf(&b, ` AND %s(%s) LIKE ? ESCAPE '\'`, foldFunc, c.kind.search)
		}
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	b.WriteString(" ORDER BY created_at DESC, id")
	switch {
	case filter.Limit > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	case filter.Offset > 0 && c.s.postgres:
		b.WriteString(" LIMIT ALL OFFSET ?")
		args = append(args, filter.Offset)
	case filter.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, filter.Offset)
	}

	rows, err := c.s.db.QueryContext(ctx, c.s.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.kind.table, err)
	}
	defer rows.Close()

	items := make([]*T, 0)
	for rows.Next() {
		item, err := c.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.kind.table, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c *sqlCollection[T, PT]) Update(ctx context.Context, item *T) error {
	rec := PT(item).Meta()
	sets := make([]string, 0, len(c.kind.columns)+1)
	for _, col := range c.kind.columns {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args := append(c.kind.values(item), rec.UpdatedAt.UTC(), rec.ID, rec.UserID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		c.kind.table, strings.Join(sets, ", "))
	n, err := c.s.exec(ctx, c.s.db, query, args...)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to update %s: %w", c.kind.table, err)
	}
	if n == 0 {
		return c.explain(ctx, c.s.db, rec.UserID, rec.ID, ErrDeleted)
	}
	return nil
}

func (c *sqlCollection[T, PT]) SoftDelete(ctx context.Context, userID, id string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		c.kind.table)
	n, err := c.s.exec(ctx, c.s.db, query, at.UTC(), at.UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to trash %s: %w", c.kind.table, err)
	}
	if n == 0 {
		return c.explain(ctx, c.s.db, userID, id, ErrDeleted)
	}
	return nil
}

func (c *sqlCollection[T, PT]) Restore(ctx context.Context, userID, id string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL",
		c.kind.table)
	n, err := c.s.exec(ctx, c.s.db, query, at.UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", c.kind.table, err)
	}
	if n == 0 {
		return c.explain(ctx, c.s.db, userID, id, ErrNotDeleted)
	}
	return nil
}

func (c *sqlCollection[T, PT]) HardDelete(ctx context.Context, userID, id string) error {
	return c.s.inTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL", c.kind.table)
		n, err := c.s.exec(ctx, tx, query, id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", c.kind.table, err)
		}
		if n == 0 {
			return c.explain(ctx, tx, userID, id, ErrNotDeleted)
		}
		if c.kind.item == "" {
			_, err = c.s.exec(ctx, tx, "DELETE FROM project_items WHERE project_id = ?", id)
		} else {
			_, err = c.s.exec(ctx, tx, "DELETE FROM project_items WHERE kind = ? AND item_id = ?", string(c.kind.item), id)
		}
		if err != nil {
			return fmt.Errorf("failed to delete project lines: %w", err)
		}
		return nil
	})
}

func (c *sqlCollection[T, PT]) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := c.s.inTx(ctx, func(tx *sql.Tx) error {
		trashed := fmt.Sprintf("SELECT id FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < ?", c.kind.table)
		var err error
		if c.kind.item == "" {
			_, err = c.s.exec(ctx, tx, "DELETE FROM project_items WHERE project_id IN ("+trashed+")", before.UTC())
		} else {
			_, err = c.s.exec(ctx, tx, "DELETE FROM project_items WHERE kind = ? AND item_id IN ("+trashed+")",
				string(c.kind.item), before.UTC())
		}
		if err != nil {
			return fmt.Errorf("failed to purge project lines: %w", err)
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < ?", c.kind.table)
		purged, err = c.s.exec(ctx, tx, query, before.UTC())
		if err != nil {
			return fmt.Errorf("failed to purge %s: %w", c.kind.table, err)
		}
		return nil
	})
	return purged, err
}

// explain tells a missing record apart from one in the wrong trash state
func (c *sqlCollection[T, PT]) explain(ctx context.Context, q querier, userID, id string, stateErr error) error {
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ? AND user_id = ?", c.kind.table)
	var found string
	err := q.QueryRowContext(ctx, c.s.rebind(query), id, userID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", c.kind.table, err)
	}
	return stateErr
}

func (c *sqlCollection[T, PT]) counts(ctx context.Context) (RecordCount, error) {
	rc := RecordCount{Table: c.kind.table}
	query := fmt.Sprintf(`SELECT
		COALESCE(SUM(CASE WHEN deleted_at IS NULL THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM %s`, c.kind.table)
	err := c.s.db.QueryRowContext(ctx, query).Scan(&rc.Active, &rc.Trashed)
	if err != nil {
		return rc, fmt.Errorf("failed to count %s: %w", c.kind.table, err)
	}
	return rc, nil
}

// Project lines

// ListProjectItems returns the lines of a project in sort order
func (s *SQLStore) ListProjectItems(ctx context.Context, projectID string) ([]models.ProjectItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT project_id, kind, item_id, quantity, percentage, sort_order
		FROM project_items WHERE project_id = ?
		ORDER BY sort_order, kind, item_id`), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project lines: %w", err)
	}
	defer rows.Close()

	items := make([]models.ProjectItem, 0)
	for rows.Next() {
		var item models.ProjectItem
		if err := rows.Scan(&item.ProjectID, &item.Kind, &item.ItemID, &item.Quantity,
			&item.Percentage, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan project line: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceProjectItems swaps every line of a project in one transaction
func (s *SQLStore) ReplaceProjectItems(ctx context.Context, projectID string, items []models.ProjectItem) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, "DELETE FROM project_items WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("failed to clear project lines: %w", err)
		}
		for _, item := range items {
			_, err := s.exec(ctx, tx, `
				INSERT INTO project_items (project_id, kind, item_id, quantity, percentage, sort_order)
				VALUES (?, ?, ?, ?, ?, ?)`,
				projectID, string(item.Kind), item.ItemID, item.Quantity, item.Percentage, item.SortOrder)
			if errors.Is(err, ErrDuplicate) {
				return err
			}
			if err != nil {
				return fmt.Errorf("failed to insert project line: %w", err)
			}
		}
		return nil
	})
}

// GetProjectByShareToken finds a project of any user by its share token
func (s *SQLStore) GetProjectByShareToken(ctx context.Context, token string) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE share_token = ?", s.projects.selectColumns(), TableProjects)
	p, err := s.projects.scan(s.db.QueryRowContext(ctx, s.rebind(query), token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shared project: %w", err)
	}
	return p, nil
}

// Users and sessions

// CreateUser stores a new user; emails are unique
func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO users (id, email, name, password_hash, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Currency,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return err
}

// GetUser retrieves a user by ID
func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by normalized email
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf(`SELECT id, email, name, password_hash, currency, created_at, updated_at
		FROM users WHERE %s = ?`, column)
	err := s.db.QueryRowContext(ctx, s.rebind(query), value).Scan(&u.ID, &u.Email, &u.Name,
		&u.PasswordHash, &u.Currency, timeDest{&u.CreatedAt}, timeDest{&u.UpdatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CreateSession stores a new session
func (s *SQLStore) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.TokenHash, session.IPAddress, session.UserAgent,
		session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return err
}

// GetSession retrieves a session by ID
func (s *SQLStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, token_hash, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE id = ?`), id).Scan(&sess.ID, &sess.UserID, &sess.TokenHash,
		&sess.IPAddress, &sess.UserAgent, timeDest{&sess.CreatedAt}, timeDest{&sess.ExpiresAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session
func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	n, err := s.exec(ctx, s.db, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before now
func (s *SQLStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.exec(ctx, s.db, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}

// Maintenance

type purger interface {
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// PurgeDeleted hard-deletes every record trashed before the cutoff
func (s *SQLStore) PurgeDeleted(ctx context.Context, before time.Time) (map[string]int64, error) {
	tables := []struct {
		name string
		c    purger
	}{
		{TableProjects, s.projects},
		{TableLumber, s.lumber},
		{TableFinishes, s.finishes},
		{TableSheetGoods, s.sheetGoods},
		{TableConsumables, s.consumables},
		{TableTools, s.tools},
	}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		n, err := t.c.PurgeDeleted(ctx, before)
		if err != nil {
			return out, err
		}
		out[t.name] = n
	}
	return out, nil
}

// RecordCounts reports active and trashed rows per table
func (s *SQLStore) RecordCounts(ctx context.Context) ([]RecordCount, error) {
	counters := []func(context.Context) (RecordCount, error){
		s.lumber.counts, s.finishes.counts, s.sheetGoods.counts,
		s.consumables.counts, s.tools.counts, s.projects.counts,
	}
	out := make([]RecordCount, 0, len(counters))
	for _, count := range counters {
		rc, err := count(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

// HealthCheck verifies the database connection
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Vacuum reclaims space left by deleted rows
func (s *SQLStore) Vacuum(ctx context.Context) error {
	stmt := "VACUUM"
	if s.postgres {
		stmt = "VACUUM ANALYZE"
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// timeDest scans DATETIME and TIMESTAMPTZ columns whatever form the driver hands back
type timeDest struct{ t *time.Time }

func (d timeDest) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		*d.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (d timeDest) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// nullTimeDest scans a nullable time column into a *time.Time field
type nullTimeDest struct{ t **time.Time }

func (d nullTimeDest) Scan(src any) error {
	if src == nil {
		*d.t = nil
		return nil
	}
	var t time.Time
	if err := (timeDest{&t}).Scan(src); err != nil {
		return err
	}
	*d.t = &t
	return nil
}

// nullStringDest scans a nullable text column into a *string field
type nullStringDest struct{ s **string }

func (d nullStringDest) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	if !ns.Valid {
		*d.s = nil
		return nil
	}
	*d.s = &ns.String
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
