package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// Students and teachers share the same (id, first_name, last_name) shape;
// these helpers hold the SQL common to both tables.

type personRow struct {
	ID        int64
	FirstName string
	LastName  string
}

func insertPerson(ctx context.Context, q querier, sb squirrel.StatementBuilderType, table, first, last string) (int64, error) {
	sql, args, err := sb.Insert(table).
		Columns("first_name", "last_name").
		Values(first, last).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert %s query: %w", table, err)
	}

	var id int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error executing insert person query")
		return 0, fmt.Errorf("error inserting into %s: %w", table, dberrors.Classify(err))
	}
	return id, nil
}

func selectPeople(ctx context.Context, q querier, sb squirrel.StatementBuilderType, table string, where squirrel.Sqlizer) ([]personRow, error) {
	query := sb.Select("id", "first_name", "last_name").From(table).OrderBy("last_name ASC", "first_name ASC", "id ASC")
	if where != nil {
		query = query.Where(where)
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select %s query: %w", table, err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error executing select person query")
		return nil, fmt.Errorf("error querying %s: %w", table, dberrors.Classify(err))
	}
	defer rows.Close()

	var people []personRow
	for rows.Next() {
		var p personRow
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", table, err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, dberrors.Classify(err))
	}
	return people, nil
}

func updatePerson(ctx context.Context, q querier, sb squirrel.StatementBuilderType, table string, id int64, update models.PersonUpdate, notFound string) error {
	if update.Empty() {
		return nil
	}
	query := sb.Update(table).Where(squirrel.Eq{"id": id})
	if update.FirstName != nil {
		query = query.Set("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		query = query.Set("last_name", *update.LastName)
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update %s query: %w", table, err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Int64("id", id).Msg("Error executing update person query")
		return fmt.Errorf("error updating %s: %w", table, dberrors.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(notFound)
	}
	return nil
}

// execStatement runs a write built by the caller and returns rows affected.
func execStatement(ctx context.Context, q querier, stmt squirrel.Sqlizer, what string) (int64, error) {
	sql, args, err := stmt.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s query: %w", what, err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("statement", what).Msg("Error executing statement")
		return 0, fmt.Errorf("error executing %s: %w", what, dberrors.Classify(err))
	}
	return tag.RowsAffected(), nil
}
