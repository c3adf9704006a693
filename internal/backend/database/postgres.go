package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order and recorded in schema_migrations
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_users",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id         UUID         PRIMARY KEY,
				username   VARCHAR(255) NOT NULL UNIQUE,
				bio        TEXT,
				avatar_url TEXT         NOT NULL,
				created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version: "000002_create_images",
		SQL: `
			CREATE TABLE IF NOT EXISTS images (
				id                 UUID         PRIMARY KEY,
				title              VARCHAR(255) NOT NULL,
				description        TEXT,
				image_url          TEXT         NOT NULL,
				original_url       TEXT,
				file_name          VARCHAR(255) NOT NULL,
				original_file_name VARCHAR(255) NOT NULL,
				user_id            UUID         NOT NULL REFERENCES users(id),
				file_size          BIGINT       NOT NULL,
				original_file_size BIGINT       NOT NULL,
				file_type          VARCHAR(64)  NOT NULL,
				original_format    VARCHAR(16)  NOT NULL,
				views              BIGINT       NOT NULL DEFAULT 0,
				created_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at DESC, id DESC);
			CREATE INDEX IF NOT EXISTS idx_images_user_id ON images(user_id, created_at DESC);
		`,
	},
}

type PostgresDatabase struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresDatabase(ctx context.Context, databaseURL string) (DatabaseService, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database", "type", "postgres")
	return &PostgresDatabase{pool: pool, now: time.Now}, nil
}

// CreateDatabase applies all pending migrations in order.
func (p *PostgresDatabase) CreateDatabase(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := p.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		if err := p.applyMigration(ctx, m.Version, m.SQL); err != nil {
			return err
		}
		slog.Info("applied migration", "version", m.Version)
	}
	return nil
}

func (p *PostgresDatabase) applyMigration(ctx context.Context, version, statement string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if _, err := tx.Exec(ctx, statement); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", version, err)
	}
	return nil
}

func (p *PostgresDatabase) DoesDatabaseExist(ctx context.Context) bool {
	return p.pool.Ping(ctx) == nil
}

func (p *PostgresDatabase) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresDatabase) CreateImage(ctx context.Context, image *Image) (*Image, error) {
	img, err := prepareImage(image, p.now())
	if err != nil {
		return nil, err
	}

	_, err = p.pool.Exec(ctx, `INSERT INTO images (
			id, title, description, image_url, original_url, file_name, original_file_name,
			user_id, file_size, original_file_size, file_type, original_format, views, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		img.ID, img.Title, nullString(img.Description), img.ImageURL, nullString(img.OriginalURL),
		img.FileName, img.OriginalFileName, img.UserID, img.FileSize, img.OriginalFileSize,
		img.FileType, img.OriginalFormat, img.Views, img.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	return img, nil
}

func (p *PostgresDatabase) ListImages(ctx context.Context, page, pageSize int) ([]*ImageWithOwner, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `SELECT `+postgresImageColumns+`, `+postgresOwnerColumns+`
		FROM images i LEFT JOIN users u ON u.id = i.user_id
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT $1 OFFSET $2`, pageSize, page*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*ImageWithOwner, 0, pageSize)
	for rows.Next() {
		var (
			img       imageRow
			owner     ownerRow
			createdAt time.Time
		)
		if err := rows.Scan(append(img.dest(&createdAt), owner.dest()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		result := img.result()
		result.CreatedAt = createdAt.UTC()
		images = append(images, &ImageWithOwner{Image: *result, Owner: owner.result()})
	}
	return images, rows.Err()
}

func (p *PostgresDatabase) GetImageByID(ctx context.Context, id string) (*ImageWithUser, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	row := p.pool.QueryRow(ctx, `SELECT `+postgresImageColumns+`, `+postgresUserColumns+`
		FROM images i LEFT JOIN users u ON u.id = i.user_id
		WHERE i.id = $1`, id)

	var (
		img           imageRow
		user          userRow
		createdAt     time.Time
		userCreatedAt *time.Time
	)
	if err := row.Scan(append(img.dest(&createdAt), user.dest(&userCreatedAt)...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	result := img.result()
	result.CreatedAt = createdAt.UTC()
	var joined time.Time
	if userCreatedAt != nil {
		joined = userCreatedAt.UTC()
	}
	return &ImageWithUser{Image: *result, User: user.result(joined)}, nil
}

func (p *PostgresDatabase) ListUserImages(ctx context.Context, userID string) ([]*Image, error) {
	if !isUUID(userID) {
		return []*Image{}, nil
	}
	rows, err := p.pool.Query(ctx, `SELECT `+postgresImageColumns+`
		FROM images i WHERE i.user_id = $1
		ORDER BY i.created_at DESC, i.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user images: %w", err)
	}
	defer rows.Close()

	images := make([]*Image, 0)
	for rows.Next() {
		var (
			img       imageRow
			createdAt time.Time
		)
		if err := rows.Scan(img.dest(&createdAt)...); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		result := img.result()
		result.CreatedAt = createdAt.UTC()
		images = append(images, result)
	}
	return images, rows.Err()
}

func (p *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*User, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	row := p.pool.QueryRow(ctx, `SELECT `+postgresUserColumns+` FROM users u WHERE u.id = $1`, id)
	return scanPostgresUser(row)
}

func (p *PostgresDatabase) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+postgresUserColumns+` FROM users u WHERE u.username = $1`, username)
	user, err := scanPostgresUser(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (p *PostgresDatabase) CreateUser(ctx context.Context, username, bio string) (*User, error) {
	user, err := newUser(username, bio, p.now())
	if err != nil {
		return nil, err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO users (id, username, bio, avatar_url, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, nullString(user.Bio), user.AvatarURL, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (p *PostgresDatabase) EnsureUser(ctx context.Context, username, bio string) (*User, error) {
	user, err := newUser(username, bio, p.now())
	if err != nil {
		return nil, err
	}
	row := p.pool.QueryRow(ctx, `INSERT INTO users (id, username, bio, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id::text, username, bio, avatar_url, created_at`,
		user.ID, user.Username, nullString(user.Bio), user.AvatarURL, user.CreatedAt)
	stored, err := scanPostgresUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return stored, nil
}

// UUID columns are cast so they scan into the shared string rows
const (
	postgresImageColumns = `i.id::text, i.title, i.description, i.image_url, i.original_url, i.file_name, i.original_file_name,
		i.user_id::text, i.file_size, i.original_file_size, i.file_type, i.original_format, i.views, i.created_at`
	postgresOwnerColumns = `u.id::text, u.username, u.avatar_url`
	postgresUserColumns  = `u.id::text, u.username, u.bio, u.avatar_url, u.created_at`
)

func scanPostgresUser(row scanner) (*User, error) {
	var (
		user      userRow
		createdAt time.Time
	)
	if err := row.Scan(user.dest(&createdAt)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user.result(createdAt.UTC()), nil
}
