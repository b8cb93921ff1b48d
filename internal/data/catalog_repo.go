package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crawlspace/harvester/internal/data/database"
	"github.com/crawlspace/harvester/internal/domain/model"
)

// CatalogRepo resolves filter snapshots against the harvested items table.
type CatalogRepo struct {
	DB *sql.DB
}

// NewCatalogRepo creates a CatalogRepo over the given database handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{DB: db}
}

// ResolveTargets returns the ordered (id, address) pairs matching the filter.
func (r *CatalogRepo) ResolveTargets(ctx context.Context, filter *model.FilterSpec) ([]model.Target, error) {
	if filter == nil {
		filter = &model.FilterSpec{}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	orderBy, orderDir := filter.Order()
	opts := []database.ListQueryOption{
		database.WithColumns("item_id", "url"),
		database.WithConditions(filterConditions(filter)...),
		database.WithOrderBy(string(orderBy), orderDir),
	}
	if filter.Limit != nil {
		opts = append(opts, database.WithLimit(*filter.Limit))
	}
	if filter.Offset > 0 {
		opts = append(opts, database.WithOffset(filter.Offset))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("items", opts...))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError("resolve targets", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var targets []model.Target
	for rows.Next() {
		var t model.Target
		if scanErr := rows.Scan(&t.ID, &t.Address); scanErr != nil {
			return nil, fmt.Errorf("scan target: %w", scanErr)
		}
		targets = append(targets, t)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, mapDBError("resolve targets", rowsErr)
	}
	return targets, nil
}

// CountTargets returns the filter's cardinality. Limit and offset do not
// apply to counting, which sizes the job before seeding.
func (r *CatalogRepo) CountTargets(ctx context.Context, filter *model.FilterSpec) (int, error) {
	if filter == nil {
		filter = &model.FilterSpec{}
	}
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("items",
		database.WithConditions(filterConditions(filter)...),
		database.WithCountOnly(),
	))

	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, mapDBError("count targets", err)
	}
	return count, nil
}

// MarkProcessed flags harvested items so later filters can exclude them.
func (r *CatalogRepo) MarkProcessed(ctx context.Context, targetIDs []string) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE items SET processed = TRUE WHERE item_id = ANY($1) AND NOT processed`,
		targetIDs)
	if err != nil {
		return 0, mapDBError("mark processed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// filterConditions translates a FilterSpec into typed predicates. All
// predicates AND together; keyword lists OR within their field; every
// included tag must be present and every excluded tag absent.
func filterConditions(f *model.FilterSpec) []database.Condition {
	var conds []database.Condition

	numeric := []struct {
		col      string
		min, max *int
	}{
		{"answer_count", f.AnswerCountMin, f.AnswerCountMax},
		{"follow_count", f.FollowCountMin, f.FollowCountMax},
		{"view_count", f.ViewCountMin, f.ViewCountMax},
	}
	for _, n := range numeric {
		if n.min != nil {
			conds = append(conds, database.WhereCond(n.col, database.GreaterThanOrEqual, *n.min))
		}
		if n.max != nil {
			conds = append(conds, database.WhereCond(n.col, database.LessThanOrEqual, *n.max))
		}
	}

	if f.CreateTimeStart != nil {
		conds = append(conds, database.WhereCond("create_time", database.GreaterThanOrEqual, *f.CreateTimeStart))
	}
	if f.CreateTimeEnd != nil {
		conds = append(conds, database.WhereCond("create_time", database.LessThanOrEqual, *f.CreateTimeEnd))
	}

	if len(f.TitleKeywords) > 0 {
		conds = append(conds, keywordGroup("title", f.TitleKeywords))
	}
	if len(f.ContentKeywords) > 0 {
		conds = append(conds, keywordGroup("content", f.ContentKeywords))
	}

	if f.Author != "" {
		conds = append(conds, database.ContainsFold("author", f.Author))
	}

	for _, tag := range f.TagsInclude {
		conds = append(conds, database.WhereCond("tags", database.HasElement, tag))
	}
	for _, tag := range f.TagsExclude {
		conds = append(conds, database.WhereCond("tags", database.NotHasElement, tag))
	}

	if f.Processed != nil {
		conds = append(conds, database.WhereCond("processed", database.Equal, *f.Processed))
	}
	if len(f.SourceJobIDs) > 0 {
		conds = append(conds, database.WhereCond("source_job_id", database.In, f.SourceJobIDs))
	}

	return conds
}

func keywordGroup(col string, keywords []string) database.Condition {
	children := make([]database.Condition, 0, len(keywords))
	for _, kw := range keywords {
		children = append(children, database.ContainsFold(col, kw))
	}
	return database.WhereAnyCond(children...)
}
