package recordstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedTables guards against interpolating arbitrary identifiers into SQL.
var allowedTables = map[string]struct{}{
	TableCredentials:  {},
	TableProfiles:     {},
	TableEyeScans:     {},
	TableAppointments: {},
}

// postgresStore implements Store over a pgx connection pool.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Query(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	where, args := buildWhere(filter)
	query := fmt.Sprintf("SELECT * FROM %s%s", table, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *postgresStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("insert into %s returned no row", table)
	}

	fields := rows.FieldDescriptions()
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	inserted := make(Row, len(fields))
	for i, fd := range fields {
		inserted[string(fd.Name)] = values[i]
	}
	return inserted, nil
}

func (s *postgresStore) Update(ctx context.Context, table string, filter Filter, changes Row) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, fmt.Errorf("update on %s with no changes", table)
	}

	cols := make([]string, 0, len(changes))
	for col := range changes {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filter))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s=$%d", col, i+1)
		args = append(args, changes[col])
	}

	where := ""
	if len(filter) > 0 {
		fcols := make([]string, 0, len(filter))
		for col := range filter {
			fcols = append(fcols, col)
		}
		sort.Strings(fcols)

		clauses := make([]string, len(fcols))
		for i, col := range fcols {
			clauses[i] = fmt.Sprintf("%s=$%d", col, len(cols)+i+1)
			args = append(args, filter[col])
		}
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *postgresStore) Count(ctx context.Context, table string, filter Filter) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	where, args := buildWhere(filter)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func checkTable(table string) error {
	if _, ok := allowedTables[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

func buildWhere(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	clauses := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		clauses[i] = fmt.Sprintf("%s=$%d", col, i+1)
		args[i] = filter[col]
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
