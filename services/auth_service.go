package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DIPEDEV/batalla-numeros/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	tokenTTL          = 7 * 24 * time.Hour
	minUsernameLength = 3
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	google    *oauth2.Config
	now       func() time.Time
}

// NewAuthService builds the identity service. google may be nil when
// Google sign-in is not configured.
func NewAuthService(db *gorm.DB, jwtSecret string, google *oauth2.Config) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		google:    google,
		now:       time.Now,
	}
}

type Claims struct {
	UserID      string `json:"user_id"`
	IsAnonymous bool   `json:"is_anonymous"`
	jwt.RegisteredClaims
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:      user.ID,
		IsAnonymous: user.IsAnonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) respond(user *models.User) (*AuthResponse, error) {
	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *AuthService) SignInAnonymously(ctx context.Context) (*AuthResponse, error) {
	user := &models.User{ID: uuid.NewString(), IsAnonymous: true, DisplayName: "Invitado"}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	log.Printf("Anonymous user %s signed in", user.ID)
	return s.respond(user)
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        &email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Registered user %s", user.ID)
	return s.respond(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.respond(&user)
}

func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrOAuthDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback exchanges the authorization code, then links the Google
// account to an existing user by Google id or email, or creates one.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrOAuthDisabled
	}
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	resp, err := s.google.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("failed to decode google profile: %w", err)
	}
	if gu.ID == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.upsertGoogleUser(ctx, gu)
	if err != nil {
		return nil, err
	}
	return s.respond(user)
}

func (s *AuthService) upsertGoogleUser(ctx context.Context, gu googleUser) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		email := strings.ToLower(gu.Email)
		err := tx.Where("google_id = ?", gu.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && email != "" {
			err = tx.Where("email = ?", email).First(&user).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{ID: uuid.NewString()}
			if email != "" {
				user.Email = &email
			}
		} else if err != nil {
			return err
		}

		user.GoogleID = &gu.ID
		user.IsAnonymous = false
		if user.DisplayName == "" {
			user.DisplayName = gu.Name
		}
		// Keep a custom avatar; follow the provider photo otherwise.
		if user.PhotoURL == "" || user.PhotoURL == user.ProviderPhoto {
			user.PhotoURL = gu.Picture
		}
		user.ProviderPhoto = gu.Picture
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Identity resolves how a user appears inside a match. name overrides the
// stored names when given.
func (s *AuthService) Identity(ctx context.Context, userID, name string) (PlayerIdentity, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return PlayerIdentity{}, err
	}
	if name == "" {
		name = user.Username
	}
	if name == "" {
		name = user.DisplayName
	}
	return PlayerIdentity{
		ID:          user.ID,
		Name:        name,
		PhotoURL:    user.PhotoURL,
		IsAnonymous: user.IsAnonymous,
	}, nil
}

func normalizeUsername(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minUsernameLength {
		return "", "", ErrInvalidUsername
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", "", ErrInvalidName
	}
	return name, strings.ToLower(name), nil
}

// RegisterUsername reserves name globally for a registered user and drops
// any name the user held before.
func (s *AuthService) RegisterUsername(ctx context.Context, userID, name string) (*models.User, error) {
	name, lower, err := normalizeUsername(name)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.IsAnonymous {
			return ErrAnonymousUser
		}

		var existing models.Username
		err := tx.Where("name = ?", lower).First(&existing).Error
		switch {
		case err == nil && existing.UserID != userID:
			return ErrUsernameTaken
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Username{Name: lower, UserID: userID}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if err := tx.Where("user_id = ? AND name <> ?", userID, lower).Delete(&models.Username{}).Error; err != nil {
			return err
		}
		user.Username = name
		return tx.Model(&user).Update("username", name).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %s registered username %s", userID, name)
	return &user, nil
}

// IsReserved reports whether name is reserved by a user other than userID.
func (s *AuthService) IsReserved(ctx context.Context, name, userID string) (bool, error) {
	var reservation models.Username
	err := s.db.WithContext(ctx).Where("name = ?", strings.ToLower(strings.TrimSpace(name))).First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return reservation.UserID != userID, nil
}

// SignOut deletes anonymous users together with any name they hold so the
// name is free again. Registered users keep their data.
func (s *AuthService) SignOut(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if !user.IsAnonymous {
			return nil
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Username{}).Error; err != nil {
			return err
		}
		log.Printf("Cleaned up anonymous user %s", userID)
		return tx.Unscoped().Delete(&user).Error
	})
}

// CleanupAnonymous removes anonymous users idle for longer than olderThan.
func (s *AuthService) CleanupAnonymous(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.User{}).Select("id").Where("is_anonymous = ? AND updated_at < ?", true, cutoff)
		if err := tx.Where("user_id IN (?)", stale).Delete(&models.Username{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("is_anonymous = ? AND updated_at < ?", true, cutoff).Delete(&models.User{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("Removed %d idle anonymous users", removed)
	}
	return removed, nil
}
