package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

const taskColumns = "id, user_id, title, description, is_completed, priority, due_date, created_at, updated_at"

// priorityRank orders priorities by urgency instead of alphabetically.
const priorityRank = "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END"

// queryBuilder accumulates WHERE clauses with numbered placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

// arg registers v and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) and(clause string) {
	b.where = append(b.where, clause)
}

func (b *queryBuilder) whereSQL() string {
	return "WHERE " + strings.Join(b.where, " AND ")
}

// taskListQuery is the pair of statements behind one page of a listing.
type taskListQuery struct {
	count     string
	countArgs []any
	page      string
	pageArgs  []any
}

// buildTaskListQuery translates a normalized filter into SQL. The owner
// predicate is always the first clause and every user-supplied value is
// bound as a parameter; identifiers come from fixed whitelists.
func buildTaskListQuery(userID uuid.UUID, f domain.TaskFilter, now time.Time) taskListQuery {
	b := &queryBuilder{}
	b.and("user_id = " + b.arg(userID))

	if f.IsCompleted != nil {
		b.and("is_completed = " + b.arg(*f.IsCompleted))
	}
	if f.Priority != nil {
		b.and("priority = " + b.arg(string(*f.Priority)))
	}
	if f.DueOn != nil {
		start := *f.DueOn
		end := start.AddDate(0, 0, 1)
		b.and(fmt.Sprintf("due_date >= %s AND due_date < %s", b.arg(start), b.arg(end)))
	}
	if f.Overdue != nil {
		p := b.arg(now)
		if *f.Overdue {
			b.and(fmt.Sprintf("is_completed = FALSE AND due_date IS NOT NULL AND due_date < %s", p))
		} else {
			b.and(fmt.Sprintf("(is_completed = TRUE OR due_date IS NULL OR due_date >= %s)", p))
		}
	}
	if f.UpcomingDays != nil {
		until := now.AddDate(0, 0, *f.UpcomingDays)
		b.and(fmt.Sprintf("is_completed = FALSE AND due_date BETWEEN %s AND %s", b.arg(now), b.arg(until)))
	}

	where := b.whereSQL()
	countArgs := append([]any(nil), b.args...)

	limit := b.arg(f.PerPage)
	offset := b.arg(f.Offset())

	return taskListQuery{
		count:     "SELECT COUNT(*) FROM tasks " + where,
		countArgs: countArgs,
		page: fmt.Sprintf("SELECT %s FROM tasks %s ORDER BY %s LIMIT %s OFFSET %s",
			taskColumns, where, orderByClause(f.SortBy, f.SortOrder), limit, offset),
		pageArgs: b.args,
	}
}

// orderByClause renders the sort. Tasks without a due date sort last in both
// directions, and id breaks ties so pages never overlap.
func orderByClause(field domain.SortField, order domain.SortOrder) string {
	dir := "DESC"
	if order == domain.SortAsc {
		dir = "ASC"
	}

	var primary string
	switch field {
	case domain.SortByUpdatedAt:
		primary = "updated_at " + dir
	case domain.SortByDueDate:
		primary = "due_date " + dir + " NULLS LAST"
	case domain.SortByPriority:
		primary = priorityRank + " " + dir
	case domain.SortByIsCompleted:
		primary = "is_completed " + dir
	default:
		primary = "created_at " + dir
	}
	return primary + ", id " + dir
}
