package database

import "time"

// Image is one uploaded photo: the converted asset plus the original it was made from
type Image struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	ImageURL         string    `json:"image_url"`              // converted asset locator
	OriginalURL      string    `json:"original_url,omitempty"` // original asset locator
	FileName         string    `json:"file_name"`
	OriginalFileName string    `json:"original_file_name"`
	UserID           string    `json:"user_id"`
	FileSize         int64     `json:"file_size"`          // converted size in bytes
	OriginalFileSize int64     `json:"original_file_size"` // original size in bytes
	FileType         string    `json:"file_type"`          // converted MIME type
	OriginalFormat   string    `json:"original_format"`    // format token of the source, e.g. "jpeg"
	Views            int64     `json:"views"`
	CreatedAt        time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Owner is the user summary joined onto gallery listings
type Owner struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type ImageWithOwner struct {
	Image
	Owner *Owner `json:"user,omitempty"`
}

type ImageWithUser struct {
	Image
	User *User `json:"user,omitempty"`
}
