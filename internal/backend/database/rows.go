package database

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

const (
	imageColumns = `i.id, i.title, i.description, i.image_url, i.original_url, i.file_name, i.original_file_name,
		i.user_id, i.file_size, i.original_file_size, i.file_type, i.original_format, i.views, i.created_at`
	ownerColumns = `u.id, u.username, u.avatar_url`
	userColumns  = `u.id, u.username, u.bio, u.avatar_url, u.created_at`
)

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// imageRow holds the nullable columns of an image while scanning.
// createdAt is backend specific: unix nanoseconds in SQLite, timestamptz in Postgres.
type imageRow struct {
	image       Image
	description sql.NullString
	originalURL sql.NullString
}

func (r *imageRow) dest(createdAt any) []any {
	return []any{
		&r.image.ID, &r.image.Title, &r.description, &r.image.ImageURL, &r.originalURL,
		&r.image.FileName, &r.image.OriginalFileName, &r.image.UserID, &r.image.FileSize,
		&r.image.OriginalFileSize, &r.image.FileType, &r.image.OriginalFormat, &r.image.Views,
		createdAt,
	}
}

func (r *imageRow) result() *Image {
	img := r.image
	img.Description = r.description.String
	img.OriginalURL = r.originalURL.String
	return &img
}

type ownerRow struct {
	id        sql.NullString
	username  sql.NullString
	avatarURL sql.NullString
}

func (r *ownerRow) dest() []any {
	return []any{&r.id, &r.username, &r.avatarURL}
}

// result returns nil when the LEFT JOIN found no owner
func (r *ownerRow) result() *Owner {
	if !r.id.Valid {
		return nil
	}
	return &Owner{ID: r.id.String, Username: r.username.String, AvatarURL: r.avatarURL.String}
}

type userRow struct {
	id        sql.NullString
	username  sql.NullString
	bio       sql.NullString
	avatarURL sql.NullString
}

func (r *userRow) dest(createdAt any) []any {
	return []any{&r.id, &r.username, &r.bio, &r.avatarURL, createdAt}
}

func (r *userRow) result(createdAt time.Time) *User {
	if !r.id.Valid {
		return nil
	}
	return &User{
		ID:        r.id.String,
		Username:  r.username.String,
		Bio:       r.bio.String,
		AvatarURL: r.avatarURL.String,
		CreatedAt: createdAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func validatePage(page, pageSize int) error {
	if page < 0 {
		return fmt.Errorf("page index must not be negative, got %d", page)
	}
	if pageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if page > math.MaxInt32/pageSize {
		return fmt.Errorf("page index %d out of range for page size %d", page, pageSize)
	}
	return nil
}

// prepareImage fills ID and CreatedAt on a copy of image
func prepareImage(image *Image, now time.Time) (*Image, error) {
	prepared := *image
	if prepared.ID == "" {
		id, err := generateID()
		if err != nil {
			return nil, err
		}
		prepared.ID = id
	}
	if prepared.CreatedAt.IsZero() {
		prepared.CreatedAt = now
	}
	prepared.CreatedAt = prepared.CreatedAt.UTC()
	return &prepared, nil
}

// newUser builds a user row for insertion with the default avatar
func newUser(username, bio string, now time.Time) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		Username:  username,
		Bio:       bio,
		AvatarURL: DefaultAvatarURL(username),
		CreatedAt: now.UTC(),
	}, nil
}
