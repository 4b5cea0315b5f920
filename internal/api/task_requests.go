package api

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api/presenter"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

const msgDueDateFormat = "The due date does not match the format Y-m-d H:i:s."

var (
	createTaskRules = shared.Rules{
		Attributes: map[string]string{
			"title":        "task title",
			"description":  "task description",
			"is_completed": "task completion status",
			"due_date":     "due date",
			"priority":     "task priority",
		},
		Messages: map[string]string{
			"title.required":       domain.MsgTitleRequired,
			"title.min":            domain.MsgTitleRequired,
			"title.max":            domain.MsgTitleTooLong,
			"is_completed.boolean": "The task completion status must be a boolean",
			"priority.oneof":       domain.MsgPriorityInvalid,
			"due_date.datetime":    msgDueDateFormat,
		},
	}

	updateTaskRules = shared.Rules{
		Attributes: createTaskRules.Attributes,
		Messages: map[string]string{
			"title.required":       domain.MsgTitleRequired,
			"title.min":            domain.MsgTitleRequired,
			"title.max":            domain.MsgTitleTooLong,
			"is_completed.boolean": "The task completion status must be true or false",
			"priority.oneof":       domain.MsgPriorityInvalid,
			"due_date.datetime":    msgDueDateFormat,
		},
	}

	filterRules = shared.Rules{
		Attributes: map[string]string{
			"is_completed": "completion status",
			"priority":     "task priority",
			"due_date":     "due date",
			"sort_by":      "sort field",
			"sort_order":   "sort order",
			"per_page":     "items per page",
		},
		Messages: map[string]string{
			"is_completed.oneof": "The task completion status must be true or false",
			"overdue.oneof":      "The overdue filter must be true or false",
			"priority.oneof":     domain.MsgPriorityInvalid,
			"due_date.datetime":  "The due date does not match the format Y-m-d.",
			"sort_by.oneof":      "The selected sort field is invalid.",
			"sort_order.oneof":   "The selected sort order is invalid.",
			"upcoming.number":    domain.MsgUpcomingRange,
			"page.number":        domain.MsgPageMin,
			"per_page.number":    domain.MsgPerPageRange,
		},
	}
)

// parseBool reads a JSON boolean, 1 or 0, or the strings "1" and "0".
// With lenientStrings any string is accepted and only "true" and "1" are
// true.
func parseBool(raw json.RawMessage, lenientStrings bool) (value, ok bool) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	switch {
	case s == "1" || (lenientStrings && s == "true"):
		return true, true
	case s == "0" || lenientStrings:
		return false, true
	default:
		return false, false
	}
}

// isNull reports whether a present JSON value is the null literal.
func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// parseDueDate parses a write-side due date in loc. An empty string clears
// the date.
func parseDueDate(s *string, loc *time.Location) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(presenter.DateTimeLayout, *s, loc)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// toTaskInput converts a decoded create request. Structural problems are
// reported as field errors; domain rules are left to the service.
func toTaskInput(req *CreateTaskRequest, present map[string]bool, loc *time.Location) (domain.TaskInput, error) {
	errs := shared.ValidateRequest(req, createTaskRules)
	var in domain.TaskInput

	switch {
	case !present["is_completed"] || isNull(req.IsCompleted):
		createTaskRules.Add(errs, "is_completed", "required")
	default:
		v, ok := parseBool(req.IsCompleted, false)
		if !ok {
			createTaskRules.Add(errs, "is_completed", "boolean")
		}
		in.IsCompleted = v
	}

	due, ok := parseDueDate(req.DueDate, loc)
	if !ok && len(errs["due_date"]) == 0 {
		errs.Add("due_date", msgDueDateFormat)
	}

	if err := errs.Err(); err != nil {
		return domain.TaskInput{}, err
	}

	in.Title = *req.Title
	in.Description = req.Description
	in.Priority = domain.Priority(*req.Priority)
	in.DueDate = due
	return in, nil
}

// toTaskPatch converts a decoded update request. Only keys present in the
// body become part of the patch.
func toTaskPatch(req *UpdateTaskRequest, present map[string]bool, loc *time.Location) (domain.TaskPatch, error) {
	errs := shared.ValidateRequest(req, updateTaskRules)
	var patch domain.TaskPatch

	if present["title"] {
		if req.Title == nil {
			updateTaskRules.Add(errs, "title", "required")
		} else {
			patch.Title = domain.Some(*req.Title)
		}
	}
	if present["description"] {
		patch.Description = domain.Some(req.Description)
	}
	if present["is_completed"] {
		if isNull(req.IsCompleted) {
			updateTaskRules.Add(errs, "is_completed", "required")
		} else if v, ok := parseBool(req.IsCompleted, true); ok {
			patch.IsCompleted = domain.Some(v)
		} else {
			updateTaskRules.Add(errs, "is_completed", "boolean")
		}
	}
	if present["priority"] {
		if req.Priority == nil {
			updateTaskRules.Add(errs, "priority", "required")
		} else {
			patch.Priority = domain.Some(domain.Priority(*req.Priority))
		}
	}
	if present["due_date"] {
		due, ok := parseDueDate(req.DueDate, loc)
		if !ok && len(errs["due_date"]) == 0 {
			errs.Add("due_date", msgDueDateFormat)
		}
		patch.DueDate = domain.Some(due)
	}

	if err := errs.Err(); err != nil {
		return domain.TaskPatch{}, err
	}
	return patch, nil
}

// toTaskFilter converts list query parameters. Day filters are interpreted
// in loc.
func toTaskFilter(values url.Values, loc *time.Location) (domain.TaskFilter, error) {
	q := TaskFilterQuery{
		IsCompleted: values.Get("is_completed"),
		Priority:    values.Get("priority"),
		DueDate:     values.Get("due_date"),
		Overdue:     values.Get("overdue"),
		Upcoming:    values.Get("upcoming"),
		SortBy:      values.Get("sort_by"),
		SortOrder:   values.Get("sort_order"),
		Page:        values.Get("page"),
		PerPage:     values.Get("per_page"),
		Include:     values.Get("include"),
	}
	errs := shared.ValidateRequest(&q, filterRules)

	f := domain.TaskFilter{
		IsCompleted:   queryBool(q.IsCompleted),
		Overdue:       queryBool(q.Overdue),
		SortBy:        domain.SortField(q.SortBy),
		SortOrder:     domain.SortOrder(q.SortOrder),
		IncludeAuthor: includes(q.Include, "author"),
	}
	if q.Priority != "" {
		p := domain.Priority(q.Priority)
		f.Priority = &p
	}
	if q.DueDate != "" && len(errs["due_date"]) == 0 {
		if day, err := time.ParseInLocation(presenter.DateLayout, q.DueDate, loc); err == nil {
			f.DueOn = &day
		}
	}
	if q.Upcoming != "" && len(errs["upcoming"]) == 0 {
		if n, ok := queryInt(q.Upcoming); ok {
			f.UpcomingDays = &n
		} else {
			errs.Add("upcoming", domain.MsgUpcomingRange)
		}
	}
	f.Page, f.PerPage = pagingParams(errs, q.Page, q.PerPage)

	if err := errs.Err(); err != nil {
		return domain.TaskFilter{}, err
	}
	return f, nil
}

// toSearchQuery converts search query parameters.
func toSearchQuery(values url.Values) (domain.SearchQuery, error) {
	q := TaskSearchQuery{
		Query:       values.Get("query"),
		IsCompleted: values.Get("is_completed"),
		Priority:    values.Get("priority"),
		Page:        values.Get("page"),
		PerPage:     values.Get("per_page"),
		Include:     values.Get("include"),
	}
	errs := shared.ValidateRequest(&q, filterRules)

	sq := domain.SearchQuery{
		Query:         strings.TrimSpace(q.Query),
		IsCompleted:   queryBool(q.IsCompleted),
		IncludeAuthor: includes(q.Include, "author"),
	}
	if q.Priority != "" {
		p := domain.Priority(q.Priority)
		sq.Priority = &p
	}
	sq.Page, sq.PerPage = pagingParams(errs, q.Page, q.PerPage)

	if err := errs.Err(); err != nil {
		return domain.SearchQuery{}, err
	}
	return sq, nil
}

// pagingParams parses page and per_page. Unset values are returned as zero
// so the domain defaults apply; a supplied per_page must be in range.
func pagingParams(errs domain.ValidationErrors, pageParam, perPageParam string) (page, perPage int) {
	if pageParam != "" && len(errs["page"]) == 0 {
		n, ok := queryInt(pageParam)
		if !ok || n < 1 {
			errs.Add("page", domain.MsgPageMin)
		}
		page = n
	}
	if perPageParam != "" && len(errs["per_page"]) == 0 {
		n, ok := queryInt(perPageParam)
		if !ok || n < 1 || n > domain.MaxPerPage {
			errs.Add("per_page", domain.MsgPerPageRange)
		}
		perPage = n
	}
	return page, perPage
}

func queryBool(s string) *bool {
	if s == "" {
		return nil
	}
	v := s == "true" || s == "1"
	return &v
}

func queryInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// includes reports whether the comma-separated list contains name.
func includes(list, name string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == name {
			return true
		}
	}
	return false
}
