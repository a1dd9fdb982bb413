package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/logging"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))
var jwtAlgorithm = jwt.SigningMethodHS256

// formKeyPrefix marks HMAC submission keys: fk.<formID>.<signature>
const formKeyPrefix = "fk"

// Claims represents the JWT claims for an admin session
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for an admin
func CreateToken(username string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(jwtSecret)
}

// VerifyToken verifies a JWT token
func VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureAdminExists checks if any admin exists, if not create one from environment variables.
func EnsureAdminExists(db *gorm.DB) error {
	var count int64
	db.Model(&database.MasterUser{}).Count(&count)

	if count == 0 {
		username := os.Getenv("ADMIN_USERNAME")
		if username == "" {
			username = "admin"
		}
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}

		hash, err := HashPassword(password)
		if err != nil {
			return err
		}

		user := database.MasterUser{
			Username:     username,
			PasswordHash: hash,
		}

		err = db.Create(&user).Error
		if err == nil {
			logging.Log.Infof("default admin user created: %s", username)
		}
		return err
	}
	return nil
}

// GenerateFormKey creates a signed submission key scoped to one form.
// A leaked key only authorizes submissions to that form.
func GenerateFormKey(formID string) string {
	secret := os.Getenv("FORM_KEY_SECRET")
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(formID))
	signature := hex.EncodeToString(h.Sum(nil))
	return formKeyPrefix + "." + formID + "." + signature
}

// VerifyFormKey validates a submission key and returns its form ID
func VerifyFormKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != formKeyPrefix {
		return "", errors.New("invalid key format")
	}

	formID := parts[1]
	providedSignature := parts[2]

	secret := os.Getenv("FORM_KEY_SECRET")
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(formID))
	expectedSignature := hex.EncodeToString(h.Sum(nil))

	// Use constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(providedSignature), []byte(expectedSignature)) {
		return "", errors.New("invalid signature")
	}

	return formID, nil
}
