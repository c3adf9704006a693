package database

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

type DatabaseService interface {
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist(ctx context.Context) bool
	Close() error

	// CreateImage inserts a record, assigning ID and CreatedAt when unset.
	CreateImage(ctx context.Context, image *Image) (*Image, error)
	// ListImages returns one page ordered by created_at descending. An empty page is not an error.
	ListImages(ctx context.Context, page, pageSize int) ([]*ImageWithOwner, error)
	GetImageByID(ctx context.Context, id string) (*ImageWithUser, error)
	ListUserImages(ctx context.Context, userID string) ([]*Image, error)

	GetUserByID(ctx context.Context, id string) (*User, error)
	// FindUserByUsername returns nil, nil when no user has the exact username.
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, bio string) (*User, error)
	// EnsureUser atomically inserts the user unless the username exists and returns the stored row.
	EnsureUser(ctx context.Context, username, bio string) (*User, error)
}
