package postgres

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// identifierPattern admits plain and table-qualified lower-case identifiers.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

type orderTerm struct {
	Column string
	Desc   bool
}

// listOptions describe the filter, ordering and paging applied to a base SELECT.
type listOptions struct {
	Where   map[string]any
	OrderBy []orderTerm
	Limit   int
	Offset  int
}

// args collects positional parameters and hands out $n placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// buildSelect appends WHERE, ORDER BY, LIMIT and OFFSET clauses to base.
// Conditions are equality tests joined with AND, in column order.
func buildSelect(base string, opts listOptions) (string, []any, error) {
	var (
		sb     strings.Builder
		params args
	)
	sb.WriteString(base)

	if len(opts.Where) > 0 {
		columns := make([]string, 0, len(opts.Where))
		for col := range opts.Where {
			columns = append(columns, col)
		}
		slices.Sort(columns)

		conds := make([]string, 0, len(columns))
		for _, col := range columns {
			if err := checkIdentifier(col); err != nil {
				return "", nil, err
			}
			conds = append(conds, col+" = "+params.add(opts.Where[col]))
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(opts.OrderBy) > 0 {
		terms := make([]string, 0, len(opts.OrderBy))
		for _, o := range opts.OrderBy {
			if err := checkIdentifier(o.Column); err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms = append(terms, o.Column+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if opts.Limit > 0 {
		sb.WriteString(" LIMIT " + params.add(opts.Limit))
	}
	if opts.Offset > 0 {
		sb.WriteString(" OFFSET " + params.add(opts.Offset))
	}

	return sb.String(), params, nil
}

// buildInsert renders a single-row INSERT with a RETURNING clause.
func buildInsert(table string, columns []string, values []any, returning ...string) (string, []any, error) {
	if len(columns) == 0 || len(columns) != len(values) {
		return "", nil, fmt.Errorf("insert into %s: %d columns for %d values", table, len(columns), len(values))
	}
	if err := checkIdentifier(table); err != nil {
		return "", nil, err
	}

	var params args
	placeholders := make([]string, len(values))
	for i, col := range columns {
		if err := checkIdentifier(col); err != nil {
			return "", nil, err
		}
		placeholders[i] = params.add(values[i])
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if len(returning) > 0 {
		for _, col := range returning {
			if err := checkIdentifier(col); err != nil {
				return "", nil, err
			}
		}
		sql += " RETURNING " + strings.Join(returning, ", ")
	}

	return sql, params, nil
}
