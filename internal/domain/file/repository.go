package file

import (
	"context"
	"time"
)

type Repository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, f *File) (*File, error)
	FindByID(ctx context.Context, id int64) (*File, error)
	Find(ctx context.Context, q Query) (Files, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) (bool, error)
	Confirm(ctx context.Context, alias string, ownerID int64, ids []int64) (int64, error)
}

// Query is a set of conditions for Repository.Find, built with the chained helpers below.
type Query struct {
	IDs []int64

	Alias        string
	OwnerID      *int64
	IncludeNoOwn bool

	Confirmed *bool
	Deleted   *bool
	MaxAge    time.Duration

	OrderByPriority bool
	Limit           int
}

func NewQuery() Query { return Query{} }

func (q Query) ByIDs(ids ...int64) Query {
	if len(ids) > 0 {
		q.IDs = ids
	}
	return q
}

// ByModel narrows the query to one owner. With addNull the files not yet bound to
// any owner of this alias are matched as well.
func (q Query) ByModel(alias string, ownerID int64, addNull bool) Query {
	q.Alias = alias
	q.OwnerID = &ownerID
	q.IncludeNoOwn = addNull
	return q
}

func (q Query) WithConfirmed(v bool) Query {
	q.Confirmed = &v
	return q
}

func (q Query) WithDeleted(v bool) Query {
	q.Deleted = &v
	return q
}

// Actual matches confirmed and not deleted records.
func (q Query) Actual() Query {
	return q.WithConfirmed(true).WithDeleted(false)
}

// WithMaxAge matches confirmed records and unconfirmed ones updated within d.
func (q Query) WithMaxAge(d time.Duration) Query {
	q.MaxAge = d
	return q
}

func (q Query) ByPriority() Query {
	q.OrderByPriority = true
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}
