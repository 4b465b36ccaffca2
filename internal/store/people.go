package store

import (
	"context"
	"strings"
)

// PeopleFilter holds the structured filters for FindPeople. Nil fields
// are not applied; empty-string filters are treated as unset so a
// caller passing "" does not accidentally match nothing.
type PeopleFilter struct {
	NameContains *string
	Department   *string
	Title        *string
	Location     *string
	MinSalary    *float64
	MaxSalary    *float64
	HiredAfter   *string
	HiredBefore  *string
	Limit        int
}

// FindPeople runs a parameterized lookup combining all supplied filters
// with AND, ordered by last name then first name.
func (s *Store) FindPeople(ctx context.Context, f PeopleFilter) (*Result, error) {
	var where []string
	var args []any

	if f.NameContains != nil && *f.NameContains != "" {
		where = append(where, "(lower(first_name) LIKE ? OR lower(last_name) LIKE ?)")
		q := "%" + strings.ToLower(*f.NameContains) + "%"
		args = append(args, q, q)
	}
	if f.Department != nil && *f.Department != "" {
		where = append(where, "department = ?")
		args = append(args, *f.Department)
	}
	if f.Title != nil && *f.Title != "" {
		where = append(where, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Location != nil && *f.Location != "" {
		where = append(where, "location = ?")
		args = append(args, *f.Location)
	}
	if f.MinSalary != nil {
		where = append(where, "salary >= ?")
		args = append(args, *f.MinSalary)
	}
	if f.MaxSalary != nil {
		where = append(where, "salary <= ?")
		args = append(args, *f.MaxSalary)
	}
	if f.HiredAfter != nil && *f.HiredAfter != "" {
		where = append(where, "hire_date >= ?")
		args = append(args, *f.HiredAfter)
	}
	if f.HiredBefore != nil && *f.HiredBefore != "" {
		where = append(where, "hire_date <= ?")
		args = append(args, *f.HiredBefore)
	}

	query := "SELECT * FROM " + TableName
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_name, first_name LIMIT ?"
	args = append(args, f.Limit)

	return s.Query(ctx, query, args...)
}
