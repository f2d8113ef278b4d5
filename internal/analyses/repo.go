package analyses

import "context"

// Repo persists analysis records. Every read and write is scoped by owner;
// a record owned by someone else is reported as ErrNotFound.
type Repo interface {
	Insert(ctx context.Context, rec Record) (string, error)
	Update(ctx context.Context, id, owner string, patch Patch) (string, error)
	GetByID(ctx context.Context, id, owner string) (Record, error)
	ListByOwner(ctx context.Context, owner string) ([]Summary, error)
}
