package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// isForeignKeyViolation checks if an error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "violates foreign key constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// wrapDeleteError converts FOREIGN KEY violations on delete to domain.ErrReferenced.
func wrapDeleteError(err error) error {
	if isForeignKeyViolation(err) {
		return domain.ErrReferenced
	}
	return err
}

// wrapInsertError converts constraint violations on a child insert into
// domain errors. parentKind and parentID describe the referenced row.
func wrapInsertError(err error, parentKind domain.Kind, parentID string) error {
	if isForeignKeyViolation(err) {
		return domain.DanglingParent(parentKind, parentID)
	}
	return wrapUniqueError(err)
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db *sqlx.DB
}

// gooseLogger routes migration output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// New creates a new SQL store and applies pending migrations.
// For sqlite3 the DSN should enable foreign keys, e.g. "file.db?_foreign_keys=on".
func New(driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if driver == "sqlite3" {
		// SQLite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{log: logger.Named("migrate").Sugar()})
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// deleteIn removes every row of table whose column is in ids.
func (s *Store) deleteIn(ctx context.Context, table, column string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", table, column), ids)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

func getOne[T any](ctx context.Context, db *sqlx.DB, query string, args ...any) (*T, error) {
	var record T
	err := db.GetContext(ctx, &record, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func selectAll[T any](ctx context.Context, db *sqlx.DB, query string, args ...any) ([]*T, error) {
	records := make([]*T, 0)
	if err := db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// ============================================
// Projects
// ============================================

const projectColumns = `id, name, domain, client, start_date, end_date, status, description, created_at, updated_at`

func (s *Store) CreateProject(ctx context.Context, project *domain.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		project.ID, project.Name, project.Domain, project.Client, project.StartDate, project.EndDate,
		project.Status, project.Description, project.CreatedAt, project.UpdatedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return getOne[domain.Project](ctx, s.db,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
}

func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return selectAll[domain.Project](ctx, s.db,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
}

func (s *Store) UpdateProject(ctx context.Context, project *domain.Project) error {
	return s.execOne(ctx,
		`UPDATE projects SET name = $1, domain = $2, client = $3, start_date = $4, end_date = $5,
		 status = $6, description = $7, updated_at = $8 WHERE id = $9`,
		project.Name, project.Domain, project.Client, project.StartDate, project.EndDate,
		project.Status, project.Description, project.UpdatedAt, project.ID)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return wrapDeleteError(s.execOne(ctx, `DELETE FROM projects WHERE id = $1`, id))
}

// ============================================
// Subdomains
// ============================================

const subdomainColumns = `id, project_id, subdomain, ip_address, status, discovery_date, notes, created_at, updated_at`

func (s *Store) CreateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subdomains (`+subdomainColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		subdomain.ID, subdomain.ProjectID, subdomain.Subdomain, subdomain.IPAddress, subdomain.Status,
		subdomain.DiscoveryDate, subdomain.Notes, subdomain.CreatedAt, subdomain.UpdatedAt)
	return wrapInsertError(err, domain.KindProject, subdomain.ProjectID)
}

func (s *Store) GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error) {
	return getOne[domain.Subdomain](ctx, s.db,
		`SELECT `+subdomainColumns+` FROM subdomains WHERE id = $1`, id)
}

func (s *Store) GetSubdomainByName(ctx context.Context, projectID, name string) (*domain.Subdomain, error) {
	return getOne[domain.Subdomain](ctx, s.db,
		`SELECT `+subdomainColumns+` FROM subdomains WHERE project_id = $1 AND subdomain = $2`, projectID, name)
}

func (s *Store) ListSubdomains(ctx context.Context, projectID string) ([]*domain.Subdomain, error) {
	return selectAll[domain.Subdomain](ctx, s.db,
		`SELECT `+subdomainColumns+` FROM subdomains WHERE project_id = $1 ORDER BY subdomain`, projectID)
}

func (s *Store) UpdateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error {
	err := s.execOne(ctx,
		`UPDATE subdomains SET subdomain = $1, ip_address = $2, status = $3, discovery_date = $4,
		 notes = $5, updated_at = $6 WHERE id = $7`,
		subdomain.Subdomain, subdomain.IPAddress, subdomain.Status, subdomain.DiscoveryDate,
		subdomain.Notes, subdomain.UpdatedAt, subdomain.ID)
	return wrapUniqueError(err)
}

func (s *Store) DeleteSubdomain(ctx context.Context, id string) error {
	return wrapDeleteError(s.execOne(ctx, `DELETE FROM subdomains WHERE id = $1`, id))
}

func (s *Store) DeleteAllSubdomainsForProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subdomains WHERE project_id = $1`, projectID)
	return wrapDeleteError(err)
}

// ============================================
// Technologies
// ============================================

const technologyColumns = `id, subdomain_id, technology, version, category, notes, created_at, updated_at`

func (s *Store) CreateTechnology(ctx context.Context, tech *domain.Technology) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO technologies (`+technologyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tech.ID, tech.SubdomainID, tech.Technology, tech.Version, tech.Category, tech.Notes,
		tech.CreatedAt, tech.UpdatedAt)
	return wrapInsertError(err, domain.KindSubdomain, tech.SubdomainID)
}

func (s *Store) GetTechnology(ctx context.Context, id string) (*domain.Technology, error) {
	return getOne[domain.Technology](ctx, s.db,
		`SELECT `+technologyColumns+` FROM technologies WHERE id = $1`, id)
}

func (s *Store) ListTechnologies(ctx context.Context, subdomainID string) ([]*domain.Technology, error) {
	return selectAll[domain.Technology](ctx, s.db,
		`SELECT `+technologyColumns+` FROM technologies WHERE subdomain_id = $1
		 ORDER BY category, technology, id`, subdomainID)
}

func (s *Store) UpdateTechnology(ctx context.Context, tech *domain.Technology) error {
	return s.execOne(ctx,
		`UPDATE technologies SET technology = $1, version = $2, category = $3, notes = $4,
		 updated_at = $5 WHERE id = $6`,
		tech.Technology, tech.Version, tech.Category, tech.Notes, tech.UpdatedAt, tech.ID)
}

func (s *Store) DeleteTechnology(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM technologies WHERE id = $1`, id)
}

func (s *Store) DeleteAllTechnologiesForSubdomains(ctx context.Context, subdomainIDs []string) error {
	return s.deleteIn(ctx, "technologies", "subdomain_id", subdomainIDs)
}

// ============================================
// Vulnerabilities
// ============================================

const vulnerabilityColumns = `id, subdomain_id, title, description, severity, cvss, cve, status, proof,
	remediation, discovery_date, affected_url, impact, created_at, updated_at`

func (s *Store) CreateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vulnerabilities (`+vulnerabilityColumns+`, seq)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		 (SELECT COALESCE(MAX(seq), 0) + 1 FROM vulnerabilities))`,
		vuln.ID, vuln.SubdomainID, vuln.Title, vuln.Description, vuln.Severity, vuln.CVSS, vuln.CVE,
		vuln.Status, vuln.Proof, vuln.Remediation, vuln.DiscoveryDate, vuln.AffectedURL, vuln.Impact,
		vuln.CreatedAt, vuln.UpdatedAt)
	return wrapInsertError(err, domain.KindSubdomain, vuln.SubdomainID)
}

func (s *Store) GetVulnerability(ctx context.Context, id string) (*domain.Vulnerability, error) {
	return getOne[domain.Vulnerability](ctx, s.db,
		`SELECT `+vulnerabilityColumns+` FROM vulnerabilities WHERE id = $1`, id)
}

func (s *Store) ListVulnerabilities(ctx context.Context, subdomainID string) ([]*domain.Vulnerability, error) {
	return selectAll[domain.Vulnerability](ctx, s.db,
		`SELECT `+vulnerabilityColumns+` FROM vulnerabilities WHERE subdomain_id = $1
		 ORDER BY created_at, seq, id`, subdomainID)
}

func (s *Store) UpdateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error {
	return s.execOne(ctx,
		`UPDATE vulnerabilities SET title = $1, description = $2, severity = $3, cvss = $4, cve = $5,
		 status = $6, proof = $7, remediation = $8, discovery_date = $9, affected_url = $10,
		 impact = $11, updated_at = $12 WHERE id = $13`,
		vuln.Title, vuln.Description, vuln.Severity, vuln.CVSS, vuln.CVE, vuln.Status, vuln.Proof,
		vuln.Remediation, vuln.DiscoveryDate, vuln.AffectedURL, vuln.Impact, vuln.UpdatedAt, vuln.ID)
}

func (s *Store) DeleteVulnerability(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM vulnerabilities WHERE id = $1`, id)
}

func (s *Store) DeleteAllVulnerabilitiesForSubdomains(ctx context.Context, subdomainIDs []string) error {
	return s.deleteIn(ctx, "vulnerabilities", "subdomain_id", subdomainIDs)
}
