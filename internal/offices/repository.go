// Package offices loads the office tables that drive the rekap reports.
package offices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

// ErrCatalogueMissing is returned when the catalogue table does not exist.
var ErrCatalogueMissing = errors.New("offices: catalogue table missing")

const undefinedTable = "42P01"

// Repository defines the office catalogue contract.
type Repository interface {
	Table(ctx context.Context, name string) ([]rekap.OfficeDescriptor, error)
	Tables(ctx context.Context) ([]string, error)
}

// PGRepository reads office tables from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL backed catalogue.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Table loads one office table in display order.
func (r *PGRepository) Table(ctx context.Context, name string) ([]rekap.OfficeDescriptor, error) {
	const query = `SELECT sequence, parent_group, office_name, officer, endpoint, COALESCE(annual_budget, 0)
		FROM office_descriptors
		WHERE table_name = $1
		ORDER BY position`
	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	table := make([]rekap.OfficeDescriptor, 0)
	for rows.Next() {
		var d rekap.OfficeDescriptor
		if err := rows.Scan(&d.Sequence, &d.ParentGroup, &d.Name, &d.Officer, &d.Endpoint, &d.AnnualBudget); err != nil {
			return nil, err
		}
		d.ParentGroup = strings.TrimSpace(d.ParentGroup)
		table = append(table, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: %s", rekap.ErrTableNotFound, name)
	}
	if err := Validate(name, table); err != nil {
		return nil, err
	}
	return table, nil
}

// Tables lists the table names present in the catalogue.
func (r *PGRepository) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT table_name FROM office_descriptors ORDER BY table_name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", ErrCatalogueMissing, pgErr.Message)
	}
	return err
}

// Validate checks that a table is usable by the rekap engine.
func Validate(name string, table []rekap.OfficeDescriptor) error {
	seen := make(map[int]struct{}, len(table))
	for i, d := range table {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("offices: table %s row %d: office name required", name, i+1)
		}
		if strings.TrimSpace(d.Endpoint) == "" {
			return fmt.Errorf("offices: table %s office %q: endpoint required", name, d.Name)
		}
		if _, dup := seen[d.Sequence]; dup {
			return fmt.Errorf("offices: table %s: duplicate sequence %d", name, d.Sequence)
		}
		seen[d.Sequence] = struct{}{}
		if d.AnnualBudget < 0 {
			return fmt.Errorf("offices: table %s office %q: negative budget", name, d.Name)
		}
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
