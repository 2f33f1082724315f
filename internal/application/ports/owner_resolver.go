package ports

import "context"

// OwnerResolver checks that the entity an upload is attached to exists.
type OwnerResolver interface {
	OwnerExists(ctx context.Context, owner string, id int64) (bool, error)
}
