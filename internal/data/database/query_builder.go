// Package database builds parameterized list queries from typed predicate
// objects. Identifiers are sanitized through pgx and every value is bound as
// a placeholder, so callers can assemble filters dynamically without string
// concatenation.
package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType names a comparison operator.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	ILike              ConditionType = "ILIKE"
	NotILike           ConditionType = "NOT ILIKE"
	In                 ConditionType = "IN"
	// HasElement matches when an array column contains the value; NotHasElement
	// when it does not.
	HasElement    ConditionType = "@>"
	NotHasElement ConditionType = "NOT @>"

	defaultLimit  = -1
	defaultOffset = -1
)

// Condition is one typed predicate. Plain conditions compare Field against
// Value; group conditions combine children with OR; in-conditions expand a
// value list into placeholders.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
	orSet []Condition
}

// WhereCond builds a single field comparison predicate.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereAnyCond builds a predicate satisfied when any child predicate matches.
// Used for keyword lists, which OR within their field.
func WhereAnyCond(conds ...Condition) Condition {
	return Condition{orSet: conds}
}

// ContainsFold builds a case-insensitive substring predicate.
func ContainsFold(field, substr string) Condition {
	return WhereCond(field, ILike, "%"+escapeLike(substr)+"%")
}

// NotContainsFold builds the negation of ContainsFold.
func NotContainsFold(field, substr string) Condition {
	return WhereCond(field, NotILike, "%"+escapeLike(substr)+"%")
}

// escapeLike neutralizes LIKE metacharacters in user-supplied substrings.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// ListQueryOptions collects the parts of a list query.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions during construction.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions builds options for querying table with the given opts.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  defaultLimit,
		Offset: defaultOffset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition appends a single predicate.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithConditions appends a list of predicates.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, conds...)
	}
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly switches the query to SELECT COUNT(*).
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) {
		o.CountOnly = true
	}
}

// sanitizeIdentifier quotes a single identifier through pgx.
func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// BuildListQuery constructs the SQL text and bound arguments from options.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString(buildSelectClause(options))
	query.WriteString("FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, args, nextParam := buildWhereClause(options.Conditions, 1)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}

	if options.CountOnly {
		return query.String(), args
	}

	if options.OrderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(sanitizeIdentifier(options.OrderBy))
		dir := strings.ToUpper(options.OrderDir)
		if dir == "ASC" || dir == "DESC" {
			query.WriteString(" ")
			query.WriteString(dir)
		}
	}

	if options.Limit != defaultLimit {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", nextParam))
		args = append(args, options.Limit)
		nextParam++
	}
	if options.Offset != defaultOffset {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", nextParam))
		args = append(args, options.Offset)
	}

	return query.String(), args
}

func buildSelectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*) "
	}
	if len(options.Columns) == 0 {
		return "SELECT * "
	}
	cols := make([]string, len(options.Columns))
	for i, col := range options.Columns {
		cols[i] = sanitizeIdentifier(col)
	}
	return fmt.Sprintf("SELECT %s ", strings.Join(cols, ", "))
}

func buildWhereClause(inputConditions []Condition, startParamIndex int) (string, []any, int) {
	clauses := make([]string, 0, len(inputConditions))
	args := []any{}
	paramCount := startParamIndex

	for _, cond := range inputConditions {
		clause, condArgs, next := processCondition(cond, paramCount)
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, condArgs...)
		paramCount = next
	}

	if len(clauses) == 0 {
		return "", args, paramCount
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, paramCount
}

func processCondition(cond Condition, paramCount int) (string, []any, int) {
	if len(cond.orSet) > 0 {
		return processOrGroup(cond, paramCount)
	}
	if cond.Field == "" {
		return "", nil, paramCount
	}
	field := sanitizeIdentifier(cond.Field)

	switch cond.Type {
	case In:
		return processInCondition(cond, field, paramCount)
	case HasElement:
		clause := fmt.Sprintf("%s @> ARRAY[$%d]", field, paramCount)
		return clause, []any{cond.Value}, paramCount + 1
	case NotHasElement:
		clause := fmt.Sprintf("NOT (%s @> ARRAY[$%d])", field, paramCount)
		return clause, []any{cond.Value}, paramCount + 1
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual,
		GreaterThanOrEqual, ILike, NotILike:
		clause := fmt.Sprintf("%s %s $%d", field, cond.Type, paramCount)
		return clause, []any{cond.Value}, paramCount + 1
	}
	return "", nil, paramCount
}

func processOrGroup(cond Condition, paramCount int) (string, []any, int) {
	clauses := make([]string, 0, len(cond.orSet))
	args := []any{}
	for _, child := range cond.orSet {
		clause, childArgs, next := processCondition(child, paramCount)
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, childArgs...)
		paramCount = next
	}
	if len(clauses) == 0 {
		return "", nil, paramCount
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, paramCount
}

func processInCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	values, ok := toAnySlice(cond.Value)
	if !ok || len(values) == 0 {
		return "", nil, paramCount
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", paramCount)
		paramCount++
	}
	clause := fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", "))
	return clause, values, paramCount
}

func toAnySlice(v any) ([]any, bool) {
	switch vs := v.(type) {
	case []any:
		return vs, true
	case []string:
		out := make([]any, len(vs))
		for i, s := range vs {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(vs))
		for i, n := range vs {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}
