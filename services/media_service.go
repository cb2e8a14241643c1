package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/storage"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
)

const MaxAvatarBytes = 2 << 20

// MediaStore is the blob storage behind avatars.
type MediaStore interface {
	Put(key string, data []byte, contentType string) error
	Get(key string) (*storage.Object, error)
	Delete(key string) error
}

type MediaService struct {
	db      *gorm.DB
	objects MediaStore
	baseURL string
}

// NewMediaService serves stored avatars under baseURL, e.g. "/media".
func NewMediaService(db *gorm.DB, objects MediaStore, baseURL string) *MediaService {
	return &MediaService{db: db, objects: objects, baseURL: strings.TrimRight(baseURL, "/")}
}

func avatarKey(userID string) string {
	return "avatars/" + userID
}

func (s *MediaService) avatarURL(userID string) string {
	return s.baseURL + "/" + avatarKey(userID)
}

// CheckAvatar sniffs data and returns its MIME type when it is an image of
// acceptable size.
func CheckAvatar(data []byte) (string, error) {
	if len(data) > MaxAvatarBytes {
		return "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrInvalidImage
	}
	return mt.String(), nil
}

func (s *MediaService) loadRegistered(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.IsAnonymous {
		return nil, ErrAnonymousUser
	}
	return &user, nil
}

func (s *MediaService) UploadAvatar(ctx context.Context, userID string, data []byte) (*models.User, error) {
	contentType, err := CheckAvatar(data)
	if err != nil {
		return nil, err
	}
	user, err := s.loadRegistered(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.objects.Put(avatarKey(userID), data, contentType); err != nil {
		return nil, err
	}
	url := s.avatarURL(userID)
	if err := s.db.WithContext(ctx).Model(user).Update("photo_url", url).Error; err != nil {
		return nil, err
	}
	user.PhotoURL = url

	log.Printf("Stored avatar for user %s (%s, %d bytes)", userID, contentType, len(data))
	return user, nil
}

// RemoveAvatar falls back to the sign-in provider's photo. The stored
// object is deleted on a best-effort basis.
func (s *MediaService) RemoveAvatar(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.loadRegistered(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("photo_url", user.ProviderPhoto).Error; err != nil {
		return nil, err
	}
	user.PhotoURL = user.ProviderPhoto

	if err := s.objects.Delete(avatarKey(userID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Failed to delete avatar object for user %s: %v", userID, err)
	}
	return user, nil
}

func (s *MediaService) Avatar(userID string) (*storage.Object, error) {
	return s.objects.Get(avatarKey(userID))
}
