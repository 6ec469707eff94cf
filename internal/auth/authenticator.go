package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/option"
)

// ErrInvalidCredentials is returned for any rejected login attempt.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// AdminRole is the custom claim value that grants panel access to a Firebase user.
const AdminRole = "admin"

const defaultVerifyTimeout = 5 * time.Second

// Authenticator checks a submitted credential and names the actor on success.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (actor string, err error)
}

// PasswordAuthenticator compares a password against a bcrypt hash.
type PasswordAuthenticator struct {
	hash []byte
}

// NewPasswordAuthenticator validates hash as a bcrypt digest.
func NewPasswordAuthenticator(hash string) (*PasswordAuthenticator, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: password hash: %w", err)
	}
	return &PasswordAuthenticator{hash: []byte(hash)}, nil
}

// HashPassword returns a bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("uluk-site"), bcrypt.DefaultCost)
	return h
})

// Authenticate implements Authenticator. An empty password still runs a
// bcrypt comparison so rejections take the same time.
func (p *PasswordAuthenticator) Authenticate(_ context.Context, password string) (string, error) {
	if password == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(p.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return "admin", nil
}

// TokenVerifier abstracts the Firebase Admin SDK client for testability.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator accepts Firebase ID tokens whose custom claims carry
// the admin role.
type FirebaseAuthenticator struct {
	verifier TokenVerifier
	timeout  time.Duration
}

// NewFirebaseAuthenticator constructs an Authenticator backed by the provided verifier.
func NewFirebaseAuthenticator(verifier TokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier, timeout: defaultVerifyTimeout}
}

// NewFirebaseVerifier initialises the Admin SDK auth client for projectID.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...option.ClientOption) (TokenVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return client, nil
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	verified, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !hasRole(AdminRole, verified.Claims["role"], verified.Claims["roles"], verified.Claims["admin"]) {
		return "", fmt.Errorf("%w: missing %s role", ErrInvalidCredentials, AdminRole)
	}
	if email := claimString(verified.Claims["email"]); email != "" {
		return email, nil
	}
	return verified.UID, nil
}

func claimString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

// hasRole accepts a role as a string, a list of strings, or a boolean claim
// named after the role.
func hasRole(role string, claims ...any) bool {
	for _, claim := range claims {
		switch v := claim.(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if strings.TrimSpace(v) == role {
				return true
			}
		case []string:
			for _, item := range v {
				if strings.TrimSpace(item) == role {
					return true
				}
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) == role {
					return true
				}
			}
		}
	}
	return false
}
