package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/pkg/database"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrBadCredentials   = errors.New("invalid credentials")
)

var jwtAlgorithm = jwt.SigningMethodHS256

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator signs admin tokens and API keys.
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
	// TokenTTL is the lifetime of admin tokens.
	TokenTTL time.Duration
	// Cost is the bcrypt cost used by HashPassword.
	Cost int
}

// New returns an authenticator using the configured secrets.
func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		jwtSecret:    []byte(cfg.JWTSecret),
		masterSecret: []byte(cfg.MasterSecret),
		TokenTTL:     24 * time.Hour,
		Cost:         14,
	}
}

// HashPassword hashes a password using bcrypt
func (a *Authenticator) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), a.Cost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (a *Authenticator) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, ErrInvalidToken
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login checks the credentials against master_users and returns a token.
func (a *Authenticator) Login(db *gorm.DB, username, password string) (string, error) {
	var user database.MasterUser
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return "", ErrBadCredentials
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrBadCredentials
	}
	return a.CreateToken(user.Username)
}

// EnsureAdminExists creates the configured admin when no master user exists.
func (a *Authenticator) EnsureAdminExists(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := a.HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Create(&database.MasterUser{Username: username, PasswordHash: hash}).Error; err != nil {
		return err
	}
	log.Printf("Default admin user created: %s", username)
	return nil
}

// GenerateHMACKey creates a signed API key of the form "<userID>.<hex sig>".
func (a *Authenticator) GenerateHMACKey(userID string) string {
	return userID + "." + a.sign(userID)
}

// NewAPIKey checks that userID can be carried in a key and signs it.
func (a *Authenticator) NewAPIKey(userID string) (string, error) {
	if userID == "" || strings.Contains(userID, ".") {
		return "", ErrInvalidKeyFormat
	}
	return a.GenerateHMACKey(userID), nil
}

// VerifyHMACKey validates an HMAC-signed API key and returns its user ID.
func (a *Authenticator) VerifyHMACKey(key string) (string, error) {
	userID, provided, ok := strings.Cut(key, ".")
	if !ok || userID == "" || strings.Contains(provided, ".") {
		return "", ErrInvalidKeyFormat
	}

	if !hmac.Equal([]byte(provided), []byte(a.sign(userID))) {
		return "", ErrInvalidSignature
	}
	return userID, nil
}

func (a *Authenticator) sign(userID string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
