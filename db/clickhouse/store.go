// Package clickhouse provides the ClickHouse rate-table store.
// Role rates are kept as immutable, versioned snapshots; exactly one snapshot per alias is active.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"proposal-cost/decision/catalog"
	"proposal-cost/pkg/platform"
)

// RateSnapshot represents a point-in-time capture of the labor rate card
type RateSnapshot struct {
	ID        uuid.UUID  `ch:"id" json:"id"`
	Alias     string     `ch:"alias" json:"alias"`
	Source    string     `ch:"source" json:"source"`
	ValidFrom time.Time  `ch:"valid_from" json:"valid_from"`
	ValidTo   *time.Time `ch:"valid_to" json:"valid_to,omitempty"`
	Hash      string     `ch:"hash" json:"hash"`
	Version   string     `ch:"version" json:"version"`
	IsActive  bool       `ch:"is_active" json:"is_active"`
	CreatedAt time.Time  `ch:"created_at" json:"created_at"`
}

// RoleRate is one role's hourly rate within a snapshot
type RoleRate struct {
	ID         uuid.UUID       `ch:"id"`
	SnapshotID uuid.UUID       `ch:"snapshot_id"`
	RoleID     string          `ch:"role_id"`
	RoleName   string          `ch:"role_name"`
	Rate       decimal.Decimal `ch:"rate"`
	Currency   string          `ch:"currency"`
	CreatedAt  time.Time       `ch:"created_at"`
}

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "proposalcost",
		Username: "default",
		Password: "",
		Debug:    platform.GetEnvBool("CLICKHOUSE_DEBUG", false),
	}
}

// Addr is the native-protocol address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Store persists rate snapshots in ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse rate store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is the DDL applied by EnsureSchema. Tables are ReplacingMergeTree on _version
// so activation is an insert of a newer row rather than an UPDATE.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS rate_snapshots (
		id UUID,
		alias String,
		source String,
		valid_from DateTime64(3),
		valid_to Nullable(DateTime64(3)),
		hash String,
		version String,
		is_active UInt8,
		created_at DateTime64(3),
		_version UInt64 DEFAULT 1,
		_deleted UInt8 DEFAULT 0
	) ENGINE = ReplacingMergeTree(_version)
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS role_rates (
		id UUID,
		snapshot_id UUID,
		role_id String,
		role_name String,
		rate Decimal(18, 6),
		currency LowCardinality(String),
		created_at DateTime64(3),
		_version UInt64 DEFAULT 1,
		_deleted UInt8 DEFAULT 0
	) ENGINE = ReplacingMergeTree(_version)
	ORDER BY (snapshot_id, role_id)`,
}

// EnsureSchema creates the tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range Schema {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

const snapshotColumns = `id, alias, source, valid_from, valid_to, hash, version, is_active, created_at`

// CreateSnapshot inserts a new rate snapshot
func (s *Store) CreateSnapshot(ctx context.Context, snapshot *RateSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	query := `INSERT INTO rate_snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.conn.Exec(ctx, query,
		snapshot.ID,
		snapshot.Alias,
		snapshot.Source,
		snapshot.ValidFrom,
		snapshot.ValidTo,
		snapshot.Hash,
		snapshot.Version,
		boolToUInt8(snapshot.IsActive),
		snapshot.CreatedAt,
	)
}

// GetSnapshot retrieves a snapshot by ID
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*RateSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM rate_snapshots FINAL WHERE id = ? AND _deleted = 0`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// GetActiveSnapshot retrieves the active snapshot for an alias, or nil if none is active
func (s *Store) GetActiveSnapshot(ctx context.Context, alias string) (*RateSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM rate_snapshots FINAL
		WHERE alias = ? AND is_active = 1 AND _deleted = 0
		ORDER BY created_at DESC
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, alias))
	if err != nil {
		return nil, fmt.Errorf("failed to get active snapshot: %w", err)
	}
	return snapshot, nil
}

// FindSnapshotByHash finds a snapshot by its content hash
func (s *Store) FindSnapshotByHash(ctx context.Context, alias, hash string) (*RateSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM rate_snapshots FINAL
		WHERE alias = ? AND hash = ? AND _deleted = 0
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, alias, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot by hash: %w", err)
	}
	return snapshot, nil
}

// ActivateSnapshot marks a snapshot active and deactivates the others sharing its alias
func (s *Store) ActivateSnapshot(ctx context.Context, id uuid.UUID) error {
	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot not found: %s", id)
	}

	deactivateQuery := `
		INSERT INTO rate_snapshots
		SELECT id, alias, source, valid_from, valid_to, hash, version, 0 AS is_active, created_at,
			   _version + 1 AS _version, _deleted
		FROM rate_snapshots FINAL
		WHERE alias = ? AND is_active = 1 AND _deleted = 0 AND id != ?
	`
	if err := s.conn.Exec(ctx, deactivateQuery, snapshot.Alias, id); err != nil {
		return fmt.Errorf("failed to deactivate snapshots: %w", err)
	}

	activateQuery := `
		INSERT INTO rate_snapshots
		SELECT id, alias, source, valid_from, valid_to, hash, version, 1 AS is_active, created_at,
			   _version + 1 AS _version, _deleted
		FROM rate_snapshots FINAL
		WHERE id = ?
	`
	if err := s.conn.Exec(ctx, activateQuery, id); err != nil {
		return fmt.Errorf("failed to activate snapshot: %w", err)
	}
	return nil
}

// ListSnapshots lists snapshots for an alias, newest first
func (s *Store) ListSnapshots(ctx context.Context, alias string) ([]*RateSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM rate_snapshots FINAL
		WHERE alias = ? AND _deleted = 0
		ORDER BY created_at DESC
	`
	rows, err := s.conn.Query(ctx, query, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*RateSnapshot
	for rows.Next() {
		var snapshot RateSnapshot
		var isActive uint8
		if err := rows.Scan(
			&snapshot.ID, &snapshot.Alias, &snapshot.Source, &snapshot.ValidFrom, &snapshot.ValidTo,
			&snapshot.Hash, &snapshot.Version, &isActive, &snapshot.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshot.IsActive = isActive == 1
		snapshots = append(snapshots, &snapshot)
	}
	return snapshots, rows.Err()
}

// =============================================================================
// RATE OPERATIONS
// =============================================================================

// BulkCreateRates inserts rates for a snapshot using a batch insert
func (s *Store) BulkCreateRates(ctx context.Context, rates []*RoleRate) error {
	if len(rates) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO role_rates (id, snapshot_id, role_id, role_name, rate, currency, created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	for _, rate := range rates {
		if rate.ID == uuid.Nil {
			rate.ID = uuid.New()
		}
		if err := batch.Append(
			rate.ID, rate.SnapshotID, rate.RoleID, rate.RoleName, rate.Rate, rate.Currency, now,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// ListRates returns the rates of a snapshot ordered by role id
func (s *Store) ListRates(ctx context.Context, snapshotID uuid.UUID) ([]*RoleRate, error) {
	query := `
		SELECT id, snapshot_id, role_id, role_name, rate, currency, created_at
		FROM role_rates FINAL
		WHERE snapshot_id = ? AND _deleted = 0
		ORDER BY role_id
	`
	rows, err := s.conn.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var rates []*RoleRate
	for rows.Next() {
		var rate RoleRate
		if err := rows.Scan(&rate.ID, &rate.SnapshotID, &rate.RoleID, &rate.RoleName, &rate.Rate, &rate.Currency, &rate.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, &rate)
	}
	return rates, rows.Err()
}

// CountRates returns the count of rates in a snapshot
func (s *Store) CountRates(ctx context.Context, snapshotID uuid.UUID) (int, error) {
	query := `SELECT count() FROM role_rates FINAL WHERE snapshot_id = ? AND _deleted = 0`
	row := s.conn.QueryRow(ctx, query, snapshotID)
	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rates: %w", err)
	}
	return int(count), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnapshot returns nil, nil when the row does not exist.
func scanSnapshot(row rowScanner) (*RateSnapshot, error) {
	var snapshot RateSnapshot
	var isActive uint8
	err := row.Scan(
		&snapshot.ID, &snapshot.Alias, &snapshot.Source, &snapshot.ValidFrom, &snapshot.ValidTo,
		&snapshot.Hash, &snapshot.Version, &isActive, &snapshot.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snapshot.IsActive = isActive == 1
	return &snapshot, nil
}

// RolesToRates converts a rate card into rows of the given snapshot.
func RolesToRates(snapshotID uuid.UUID, roles []catalog.Role, currency string) []*RoleRate {
	out := make([]*RoleRate, 0, len(roles))
	for _, r := range roles {
		out = append(out, &RoleRate{
			SnapshotID: snapshotID,
			RoleID:     r.ID,
			RoleName:   r.Name,
			Rate:       decimal.NewFromFloat(r.BaseRate).Round(RateScale),
			Currency:   currency,
		})
	}
	return out
}

// RateScale is the number of fractional digits the role_rates.rate column keeps.
const RateScale = 6

// NormalizeRoles rounds every base rate to RateScale, giving the card exactly as it reads back.
func NormalizeRoles(roles []catalog.Role) []catalog.Role {
	out := make([]catalog.Role, len(roles))
	for i, r := range roles {
		r.BaseRate = decimal.NewFromFloat(r.BaseRate).Round(RateScale).InexactFloat64()
		out[i] = r
	}
	return out
}

// RatesToRoles converts stored rows back into a rate card.
func RatesToRoles(rates []*RoleRate) []catalog.Role {
	out := make([]catalog.Role, 0, len(rates))
	for _, r := range rates {
		out = append(out, catalog.Role{
			ID:       r.RoleID,
			Name:     r.RoleName,
			BaseRate: r.Rate.InexactFloat64(),
		})
	}
	return out
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
