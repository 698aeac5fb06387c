// persistence/sql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动
	_ "modernc.org/sqlite"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

const queryTimeout = 5 * time.Second

// SQL is a database/sql implementation for the "postgres" (lib/pq) and "sqlite"
// (modernc) drivers. Queries are written with ? placeholders and rebound for postgres.
type SQL struct {
	db     *sql.DB
	driver string
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*SQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return NewSQL("postgres", connStr)
}

// NewSQLite opens (and creates) a database file with foreign keys enabled.
func NewSQLite(path string) (*SQL, error) {
	return NewSQL("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path))
}

func NewSQL(driver, dsn string) (*SQL, error) {
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQL{db: db, driver: driver}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initTables 初始化数据库表结构
func (s *SQL) initTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS centers (
            id VARCHAR(64) PRIMARY KEY,
            position INTEGER NOT NULL,
            name VARCHAR(255) NOT NULL,
            tag VARCHAR(32) NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            manager VARCHAR(255) NOT NULL DEFAULT '',
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS scenarios (
            center_id VARCHAR(64) NOT NULL REFERENCES centers(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            name VARCHAR(255) NOT NULL,
            status VARCHAR(32) NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            start_at VARCHAR(64) NOT NULL DEFAULT '',
            expected_reopen VARCHAR(64) NOT NULL DEFAULT '',
            difficulty VARCHAR(64) NOT NULL DEFAULT '',
            capacity VARCHAR(32) NOT NULL DEFAULT '',
            opened_on VARCHAR(64) NOT NULL DEFAULT '',
            versions TEXT NOT NULL DEFAULT '[]',
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (center_id, position)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_centers_position ON centers(position)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize tables: %w", err)
		}
	}
	return nil
}

const upsertCenter = `
        INSERT INTO centers (id, position, name, tag, description, address, manager)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET position = excluded.position, name = excluded.name, tag = excluded.tag,
            description = excluded.description, address = excluded.address,
            manager = excluded.manager, updated_at = CURRENT_TIMESTAMP
    `

const upsertScenario = `
        INSERT INTO scenarios (center_id, position, name, status, reason, start_at,
            expected_reopen, difficulty, capacity, opened_on, versions)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (center_id, position)
        DO UPDATE SET name = excluded.name, status = excluded.status, reason = excluded.reason,
            start_at = excluded.start_at, expected_reopen = excluded.expected_reopen,
            difficulty = excluded.difficulty, capacity = excluded.capacity,
            opened_on = excluded.opened_on, versions = excluded.versions,
            updated_at = CURRENT_TIMESTAMP
    `

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveCenters upserts every center and its scenarios in one transaction.
func (s *SQL) SaveCenters(centers []room.Center) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, c := range centers {
		if _, err := tx.ExecContext(ctx, s.rebind(upsertCenter),
			c.ID, i, c.Name, c.Tag, c.Description, c.Address, c.Manager); err != nil {
			return fmt.Errorf("save center %s: %w", c.ID, err)
		}
		for j, scenario := range c.Scenarios {
			if err := s.saveScenario(ctx, tx, c.ID, j, scenario); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// SaveScenario upserts one scenario.
func (s *SQL) SaveScenario(centerID string, position int, scenario room.Scenario) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return s.saveScenario(ctx, s.db, centerID, position, scenario)
}

func (s *SQL) saveScenario(ctx context.Context, exec execer, centerID string, position int, scenario room.Scenario) error {
	versions := scenario.Versions
	if versions == nil {
		versions = []string{}
	}
	versionsJSON, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, s.rebind(upsertScenario),
		centerID, position, scenario.Name, scenario.Status.String(), scenario.Reason, scenario.Start,
		scenario.ExpectedReopen, scenario.Difficulty, scenario.Capacity, scenario.OpenedOn, string(versionsJSON))
	if err != nil {
		return fmt.Errorf("save scenario %s/%d: %w", centerID, position, err)
	}
	return nil
}

// LoadCenters returns every stored center in position order. An empty database
// yields an empty slice.
func (s *SQL) LoadCenters() ([]room.Center, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, tag, description, address, manager FROM centers ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var centers []room.Center
	index := make(map[string]int)
	for rows.Next() {
		var c room.Center
		if err := rows.Scan(&c.ID, &c.Name, &c.Tag, &c.Description, &c.Address, &c.Manager); err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(centers)
		centers = append(centers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT center_id, name, status, reason, start_at, expected_reopen, difficulty, capacity, opened_on, versions
         FROM scenarios ORDER BY center_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			centerID, status, versions string
			scenario                   room.Scenario
		)
		if err := rows.Scan(&centerID, &scenario.Name, &status, &scenario.Reason, &scenario.Start,
			&scenario.ExpectedReopen, &scenario.Difficulty, &scenario.Capacity, &scenario.OpenedOn, &versions); err != nil {
			return nil, err
		}
		scenario.Status = state.ParseStatus(status)
		if err := json.Unmarshal([]byte(versions), &scenario.Versions); err != nil {
			return nil, fmt.Errorf("decode versions of %s: %w", centerID, err)
		}
		if len(scenario.Versions) == 0 {
			scenario.Versions = nil
		}
		i, ok := index[centerID]
		if !ok {
			continue
		}
		centers[i].Scenarios = append(centers[i].Scenarios, scenario)
	}
	return centers, rows.Err()
}

// Close 关闭数据库连接
func (s *SQL) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
