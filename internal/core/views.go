package core

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/voltnexis/gallery/internal/backend/database"
)

const (
	unknownOwnerName     = "Unknown"
	unknownFileType      = "Unknown"
	noDescriptionText    = "No description provided."
	noBioText            = "No bio available."
	maxRelatedImages     = 6
	memberSinceLayout    = "Jan 2006"
	uploadedOnDateLayout = "Jan 2, 2006"
)

type ImageCard struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	OwnerName string `json:"owner_name"`
	OwnerID   string `json:"owner_id,omitempty"`
}

type DetailView struct {
	Image        database.Image `json:"image"`
	Description  string         `json:"description"`
	DisplayViews int64          `json:"display_views"`
	FileSize     string         `json:"file_size"`
	FileType     string         `json:"file_type"`
	UploadedOn   string         `json:"uploaded_on"`
	Owner        *OwnerView     `json:"owner,omitempty"`
	Related      []ImageCard    `json:"related"`
}

type OwnerView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

type ProfileView struct {
	User        OwnerView      `json:"user"`
	MemberSince string         `json:"member_since"`
	ImageCount  int            `json:"image_count"`
	TotalViews  int64          `json:"total_views"`
	Images      []ProfileImage `json:"images"`
}

type ProfileImage struct {
	ImageCard
	Views      int64  `json:"views"`
	UploadedOn string `json:"uploaded_on"`
}

// GalleryPage is one page of cards appended to a gallery session
type GalleryPage struct {
	SessionID string      `json:"session_id"`
	Page      int         `json:"page"`
	Cards     []ImageCard `json:"cards"`
	Exhausted bool        `json:"exhausted"`
}

func NewImageCard(image *database.ImageWithOwner) ImageCard {
	card := ImageCard{
		ID:        image.ID,
		Title:     image.Title,
		ImageURL:  image.ImageURL,
		OwnerName: unknownOwnerName,
	}
	if image.Owner != nil && image.Owner.Username != "" {
		card.OwnerName = image.Owner.Username
		card.OwnerID = image.Owner.ID
	}
	return card
}

func NewImageCards(images []*database.ImageWithOwner) []ImageCard {
	cards := make([]ImageCard, 0, len(images))
	for _, image := range images {
		cards = append(cards, NewImageCard(image))
	}
	return cards
}

// NewDetailView projects an image and its owner. ownerImages may include the image itself.
// The displayed view count is one more than the stored count and is never written back.
func NewDetailView(image *database.ImageWithUser, ownerImages []*database.Image) DetailView {
	view := DetailView{
		Image:        image.Image,
		Description:  image.Description,
		DisplayViews: image.Views + 1,
		FileSize:     FormatFileSize(displayFileSize(&image.Image)),
		FileType:     unknownFileType,
		UploadedOn:   image.CreatedAt.Format(uploadedOnDateLayout),
		Related:      relatedCards(image, ownerImages),
	}
	if view.Description == "" {
		view.Description = noDescriptionText
	}
	if image.OriginalFormat != "" {
		view.FileType = strings.ToUpper(image.OriginalFormat)
	}
	if image.User != nil {
		owner := newOwnerView(image.User)
		view.Owner = &owner
	}
	return view
}

func NewProfileView(user *database.User, images []*database.Image) ProfileView {
	view := ProfileView{
		User:        newOwnerView(user),
		MemberSince: formatMemberSince(user.CreatedAt),
		ImageCount:  len(images),
		Images:      make([]ProfileImage, 0, len(images)),
	}
	for _, image := range images {
		view.TotalViews += image.Views
		view.Images = append(view.Images, ProfileImage{
			ImageCard: ImageCard{
				ID:        image.ID,
				Title:     image.Title,
				ImageURL:  image.ImageURL,
				OwnerName: user.Username,
				OwnerID:   user.ID,
			},
			Views:      image.Views,
			UploadedOn: image.CreatedAt.Format(uploadedOnDateLayout),
		})
	}
	return view
}

func newOwnerView(user *database.User) OwnerView {
	owner := OwnerView{
		ID:        user.ID,
		Username:  user.Username,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
	}
	if owner.Bio == "" {
		owner.Bio = noBioText
	}
	if owner.AvatarURL == "" {
		owner.AvatarURL = database.DefaultAvatarURL(user.Username)
	}
	return owner
}

func relatedCards(image *database.ImageWithUser, ownerImages []*database.Image) []ImageCard {
	ownerName := unknownOwnerName
	if image.User != nil {
		ownerName = image.User.Username
	}

	related := make([]ImageCard, 0, maxRelatedImages)
	for _, other := range ownerImages {
		if other.ID == image.ID {
			continue
		}
		related = append(related, ImageCard{
			ID:        other.ID,
			Title:     other.Title,
			ImageURL:  other.ImageURL,
			OwnerName: ownerName,
			OwnerID:   other.UserID,
		})
		if len(related) == maxRelatedImages {
			break
		}
	}
	return related
}

// displayFileSize prefers the original size over the converted one
func displayFileSize(image *database.Image) int64 {
	if image.OriginalFileSize > 0 {
		return image.OriginalFileSize
	}
	return image.FileSize
}

var fileSizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders bytes in 1024 based units with at most two decimals
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value, exp := float64(bytes), 0
	for value >= 1024 && exp < len(fileSizeUnits)-1 {
		value /= 1024
		exp++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + fileSizeUnits[exp]
}

func formatMemberSince(createdAt time.Time) string {
	if createdAt.IsZero() {
		return unknownOwnerName
	}
	return createdAt.Format(memberSinceLayout)
}
