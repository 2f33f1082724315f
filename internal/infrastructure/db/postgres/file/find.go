package file

import (
	"strconv"
	"strings"
	"time"

	domain "file-upload-api/internal/domain/file"
)

// buildFind renders q as a SELECT with positional arguments. now anchors MaxAge.
func buildFind(q domain.Query, now time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(q.IDs) > 0 {
		where = append(where, "id = ANY("+arg(q.IDs)+")")
	}
	if q.Alias != "" {
		where = append(where, "alias = "+arg(q.Alias))
	}
	if q.OwnerID != nil {
		cond := "owner_id = " + arg(*q.OwnerID)
		if q.IncludeNoOwn {
			cond = "(" + cond + " OR owner_id IS NULL)"
		}
		where = append(where, cond)
	}
	if q.Confirmed != nil {
		where = append(where, "confirmed = "+arg(*q.Confirmed))
	}
	if q.Deleted != nil {
		where = append(where, "deleted = "+arg(*q.Deleted))
	}
	if q.MaxAge > 0 {
		where = append(where, "(confirmed = TRUE OR updated_at > "+arg(now.Add(-q.MaxAge))+")")
	}

	var sb strings.Builder
	sb.WriteString(SelectFiles)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if q.OrderByPriority {
		sb.WriteString(" ORDER BY priority ASC NULLS LAST, id ASC")
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}

	return sb.String(), args
}
