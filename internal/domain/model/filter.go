package model

import (
	"fmt"
	"strings"
	"time"
)

// OrderField names a catalog column the resolver may order by.
type OrderField string

const (
	// OrderByHarvestTime orders by the time an item entered the catalog.
	OrderByHarvestTime OrderField = "harvest_time"
	// OrderByAnswerCount orders by the item's answer count metric.
	OrderByAnswerCount OrderField = "answer_count"
	// OrderByFollowCount orders by the item's follower count metric.
	OrderByFollowCount OrderField = "follow_count"
	// OrderByViewCount orders by the item's view count metric.
	OrderByViewCount OrderField = "view_count"
	// OrderByCreateTime orders by the item's creation time on the platform.
	OrderByCreateTime OrderField = "create_time"
)

// Valid returns true if the OrderField names a known catalog column.
func (f OrderField) Valid() bool {
	switch f {
	case OrderByHarvestTime, OrderByAnswerCount, OrderByFollowCount,
		OrderByViewCount, OrderByCreateTime:
		return true
	}
	return false
}

// FilterSpec is a snapshot of the selection criteria that picks targets out of
// the harvested catalog. All non-nil predicates combine with AND; keyword
// lists OR within their field; tags_include requires every listed tag,
// tags_exclude requires none. Once attached to a Job the snapshot is immutable.
//
// Min/max pairs are not cross-validated: a spec with min > max is a valid,
// always-empty filter, matching how each bound binds independently.
type FilterSpec struct {
	AnswerCountMin *int `json:"answer_count_min,omitempty"`
	AnswerCountMax *int `json:"answer_count_max,omitempty"`

	FollowCountMin *int `json:"follow_count_min,omitempty"`
	FollowCountMax *int `json:"follow_count_max,omitempty"`

	ViewCountMin *int `json:"view_count_min,omitempty"`
	ViewCountMax *int `json:"view_count_max,omitempty"`

	CreateTimeStart *time.Time `json:"create_time_start,omitempty"`
	CreateTimeEnd   *time.Time `json:"create_time_end,omitempty"`

	TitleKeywords   []string `json:"title_keywords,omitempty"`
	ContentKeywords []string `json:"content_keywords,omitempty"`

	Author string `json:"author,omitempty"`

	TagsInclude []string `json:"tags_include,omitempty"`
	TagsExclude []string `json:"tags_exclude,omitempty"`

	Processed *bool `json:"processed,omitempty"`

	SourceJobIDs []string `json:"source_job_ids,omitempty"`

	OrderBy   OrderField `json:"order_by,omitempty"`
	OrderDesc bool       `json:"order_desc,omitempty"`

	Limit  *int `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
}

// Validate checks the fields the resolver cannot tolerate. Ordering must name
// a known column because it is interpolated as an identifier, and paging
// values must be non-negative.
func (f *FilterSpec) Validate() error {
	if f.OrderBy != "" && !f.OrderBy.Valid() {
		return fmt.Errorf("unknown order field: %q", f.OrderBy)
	}
	if f.Limit != nil && *f.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", *f.Limit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("offset must be >= 0, got %d", f.Offset)
	}
	for _, kw := range f.TitleKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("title keywords must not be blank")
		}
	}
	for _, kw := range f.ContentKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("content keywords must not be blank")
		}
	}
	return nil
}

// Order returns the effective ordering column and direction. The column
// defaults to harvest time when unset.
func (f *FilterSpec) Order() (OrderField, string) {
	field := f.OrderBy
	if field == "" {
		field = OrderByHarvestTime
	}
	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}
	return field, dir
}
