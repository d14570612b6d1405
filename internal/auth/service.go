package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
)

const tokenLifetime = 24 * time.Hour

// Service issues and validates JWTs and owns the credential checks.
type Service struct {
	jwtSecret []byte
}

func NewService(jwtSecret []byte) *Service {
	return &Service{jwtSecret: jwtSecret}
}

// AuthResponse is what both register and login hand back to the client.
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type RegisterRequest struct {
	Email      string   `json:"email" binding:"required,email"`
	Username   string   `json:"username" binding:"required,min=3,max=30"`
	Password   string   `json:"password" binding:"required,min=8"`
	ArtistName string   `json:"artist_name" binding:"required,min=1,max=50"`
	Genres     []string `json:"genres,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account after checking that neither the email nor the
// username is already claimed. Both checks are case-insensitive.
func (s *Service) Register(req RegisterRequest) (*AuthResponse, error) {
	if taken, err := columnTaken("email", req.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUserExists
	}

	if taken, err := columnTaken("username", req.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hash)
	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		ArtistName:   req.ArtistName,
		Genres:       req.Genres,
		PasswordHash: &hashStr,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(&user)
}

func columnTaken(column, value string) (bool, error) {
	var existing models.User
	err := database.DB.Where("LOWER("+column+") = LOWER(?)", value).First(&existing).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("database error: %w", err)
}

// Login checks the password and refuses suspended accounts. Suspension is
// only reported once the password has verified.
func (s *Service) Login(req LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsSuspended {
		return nil, ErrAccountSuspended
	}

	now := time.Now()
	user.LastActiveAt = &now
	database.DB.Save(&user)

	return s.issueToken(&user)
}

// GenerateTokenForUser mints a token for an already-authenticated user.
func (s *Service) GenerateTokenForUser(user *models.User) (*AuthResponse, error) {
	return s.issueToken(user)
}

func (s *Service) issueToken(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(tokenLifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies the signature, then loads the user fresh so a
// suspension that happened after issuance still locks the account out.
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.IsSuspended {
		return nil, ErrAccountSuspended
	}
	return &user, nil
}
