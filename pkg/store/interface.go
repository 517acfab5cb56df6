package store

import (
	"context"
	"time"

	"github.com/psantana5/grain/pkg/models"
)

// Store defines the interface for data persistence.
// Memory, SQLite and PostgreSQL stores implement it.
type Store interface {
	// Owned records, one collection per table
	Lumber() Collection[models.Lumber]
	Finishes() Collection[models.Finish]
	SheetGoods() Collection[models.SheetGood]
	Consumables() Collection[models.Consumable]
	Tools() Collection[models.Tool]
	Projects() Collection[models.Project]

	// Project lines
	ListProjectItems(ctx context.Context, projectID string) ([]models.ProjectItem, error)
	ReplaceProjectItems(ctx context.Context, projectID string, items []models.ProjectItem) error
	GetProjectByShareToken(ctx context.Context, token string) (*models.Project, error)

	// Users and sessions
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Maintenance
	PurgeDeleted(ctx context.Context, before time.Time) (map[string]int64, error)
	RecordCounts(ctx context.Context) ([]RecordCount, error)

	// Lifecycle
	HealthCheck(ctx context.Context) error
	Vacuum(ctx context.Context) error
	Close() error
}

// Collection is the soft-delete resource pattern shared by every owned table.
// Every call is scoped to the owning user; records of other users are reported as missing.
type Collection[T any] interface {
	Create(ctx context.Context, item *T) error
	// Get returns the record even when it is in the trash
	Get(ctx context.Context, userID, id string) (*T, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]*T, error)
	// Update saves an active record; CreatedAt and DeletedAt are never changed
	Update(ctx context.Context, item *T) error
	SoftDelete(ctx context.Context, userID, id string, at time.Time) error
	// Restore takes a record out of the trash, setting UpdatedAt to at
	Restore(ctx context.Context, userID, id string, at time.Time) error
	// HardDelete removes a trashed record and any project lines pointing at it
	HardDelete(ctx context.Context, userID, id string) error
	// PurgeDeleted hard-deletes records of every user trashed before the cutoff
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// ListFilter narrows a collection listing
type ListFilter struct {
	IncludeDeleted bool
	OnlyDeleted    bool
	Search         string // case-insensitive substring of the name column
	Limit          int
	Offset         int
}

func (f ListFilter) matchesDeleted(deleted bool) bool {
	if f.OnlyDeleted {
		return deleted
	}
	return f.IncludeDeleted || !deleted
}

// RecordCount reports how many rows of a table are active and trashed
type RecordCount struct {
	Table   string
	Active  int
	Trashed int
}

// Table names, also used as metric labels
const (
	TableLumber      = "lumber"
	TableFinishes    = "finishes"
	TableSheetGoods  = "sheet_goods"
	TableConsumables = "consumables"
	TableTools       = "tools"
	TableProjects    = "projects"
)

// Config holds database configuration
type Config struct {
	Type string // "memory", "sqlite", "sqlite-pure" or "postgres"
	DSN  string // Connection string or file path

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

// NewStore creates a store based on configuration
func NewStore(ctx context.Context, config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		return NewPostgreSQLStore(ctx, config)
	case "sqlite", "":
		return NewSQLiteStore(ctx, dsnOrDefault(config.DSN))
	case "sqlite-pure":
		return NewPureSQLiteStore(ctx, dsnOrDefault(config.DSN))
	default:
		return nil, ErrUnsupportedDatabase
	}
}

func dsnOrDefault(dsn string) string {
	if dsn == "" {
		return "grain.db"
	}
	return dsn
}
