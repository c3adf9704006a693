package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema stores timestamps as unix nanoseconds so ordering is numeric
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		bio TEXT,
		avatar_url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		image_url TEXT NOT NULL,
		original_url TEXT,
		file_name TEXT NOT NULL,
		original_file_name TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id),
		file_size INTEGER NOT NULL,
		original_file_size INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		original_format TEXT NOT NULL,
		views INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_created_at ON images (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_images_user_id ON images (user_id, created_at DESC)`,
}

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	for _, statement := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist(ctx context.Context) bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	return s.db.PingContext(ctx) == nil
}

func (s *SQLiteDatabase) CreateImage(ctx context.Context, image *Image) (*Image, error) {
	img, err := prepareImage(image, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO images (
			id, title, description, image_url, original_url, file_name, original_file_name,
			user_id, file_size, original_file_size, file_type, original_format, views, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.Title, nullString(img.Description), img.ImageURL, nullString(img.OriginalURL),
		img.FileName, img.OriginalFileName, img.UserID, img.FileSize, img.OriginalFileSize,
		img.FileType, img.OriginalFormat, img.Views, img.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	return img, nil
}

func (s *SQLiteDatabase) ListImages(ctx context.Context, page, pageSize int) ([]*ImageWithOwner, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+imageColumns+`, `+ownerColumns+`
		FROM images i LEFT JOIN users u ON u.id = i.user_id
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT ? OFFSET ?`, pageSize, page*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	images := make([]*ImageWithOwner, 0, pageSize)
	for rows.Next() {
		var (
			img       imageRow
			owner     ownerRow
			createdAt int64
		)
		if err := rows.Scan(append(img.dest(&createdAt), owner.dest()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		result := img.result()
		result.CreatedAt = fromUnixNano(createdAt)
		images = append(images, &ImageWithOwner{Image: *result, Owner: owner.result()})
	}
	return images, rows.Err()
}

func (s *SQLiteDatabase) GetImageByID(ctx context.Context, id string) (*ImageWithUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+`, `+userColumns+`
		FROM images i LEFT JOIN users u ON u.id = i.user_id
		WHERE i.id = ?`, id)

	var (
		img           imageRow
		user          userRow
		createdAt     int64
		userCreatedAt sql.NullInt64
	)
	if err := row.Scan(append(img.dest(&createdAt), user.dest(&userCreatedAt)...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	result := img.result()
	result.CreatedAt = fromUnixNano(createdAt)
	return &ImageWithUser{
		Image: *result,
		User:  user.result(fromUnixNano(userCreatedAt.Int64)),
	}, nil
}

func (s *SQLiteDatabase) ListUserImages(ctx context.Context, userID string) ([]*Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+imageColumns+`
		FROM images i WHERE i.user_id = ?
		ORDER BY i.created_at DESC, i.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user images: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	images := make([]*Image, 0)
	for rows.Next() {
		var (
			img       imageRow
			createdAt int64
		)
		if err := rows.Scan(img.dest(&createdAt)...); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		result := img.result()
		result.CreatedAt = fromUnixNano(createdAt)
		images = append(images, result)
	}
	return images, rows.Err()
}

func (s *SQLiteDatabase) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteDatabase) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.getUser(ctx, "username", username)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// getUser looks a user up by a trusted column name
func (s *SQLiteDatabase) getUser(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.`+column+` = ?`, value)
	return scanSQLiteUser(row)
}

func (s *SQLiteDatabase) CreateUser(ctx context.Context, username, bio string) (*User, error) {
	user, err := newUser(username, bio, s.now())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, bio, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, nullString(user.Bio), user.AvatarURL, user.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *SQLiteDatabase) EnsureUser(ctx context.Context, username, bio string) (*User, error) {
	user, err := newUser(username, bio, s.now())
	if err != nil {
		return nil, err
	}
	// The no-op update makes RETURNING yield the existing row on conflict
	row := s.db.QueryRowContext(ctx, `INSERT INTO users (id, username, bio, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET username = excluded.username
		RETURNING id, username, bio, avatar_url, created_at`,
		user.ID, user.Username, nullString(user.Bio), user.AvatarURL, user.CreatedAt.UnixNano())
	stored, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return stored, nil
}

func scanSQLiteUser(row scanner) (*User, error) {
	var (
		user      userRow
		createdAt int64
	)
	if err := row.Scan(user.dest(&createdAt)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user.result(fromUnixNano(createdAt)), nil
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
