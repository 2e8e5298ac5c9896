package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"cookbook/internal/identity"
	"cookbook/internal/media"
	"cookbook/internal/models"
)

// MediaStub is an in-memory media.Uploader. Set UploadErr or DestroyErr to make calls fail.
type MediaStub struct {
	mu         sync.Mutex
	next       int
	Stored     map[string]string
	Destroyed  []string
	UploadErr  error
	DestroyErr error
}

// NewMediaStub creates an empty MediaStub.
func NewMediaStub() *MediaStub {
	return &MediaStub{Stored: map[string]string{}}
}

// Upload stores the file name under a generated ID inside folder.
func (m *MediaStub) Upload(_ context.Context, folder string, file io.Reader, filename string) (*media.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, err
	}
	m.next++
	id := fmt.Sprintf("%s/img-%d", folder, m.next)
	m.Stored[id] = filename
	return &media.Image{
		ID:       id,
		ThumbURL: "https://media.test/thumb/" + id,
		ImageURL: "https://media.test/full/" + id,
	}, nil
}

// Destroy removes id and records the call, even when DestroyErr is set.
func (m *MediaStub) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Destroyed = append(m.Destroyed, id)
	if m.DestroyErr != nil {
		return m.DestroyErr
	}
	delete(m.Stored, id)
	return nil
}

// Count returns the number of stored images.
func (m *MediaStub) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Stored)
}

// IdentityStub is an in-memory identity.Provider and identity.Verifier.
// Tokens are "token:<email>".
type IdentityStub struct {
	mu        sync.Mutex
	passwords map[string]string
	Deleted   []string
	SignUpErr error
}

// NewIdentityStub creates an IdentityStub with no accounts.
func NewIdentityStub() *IdentityStub {
	return &IdentityStub{passwords: map[string]string{}}
}

func (s *IdentityStub) SignUp(_ context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SignUpErr != nil {
		return s.SignUpErr
	}
	email = models.NormalizeEmail(email)
	if _, ok := s.passwords[email]; ok {
		return identity.ErrUserExists
	}
	s.passwords[email] = password
	return nil
}

func (s *IdentityStub) Authenticate(_ context.Context, email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = models.NormalizeEmail(email)
	if want, ok := s.passwords[email]; !ok || want != password {
		return "", identity.ErrInvalidCredentials
	}
	return TokenFor(email), nil
}

func (s *IdentityStub) DeleteUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = models.NormalizeEmail(email)
	s.Deleted = append(s.Deleted, email)
	delete(s.passwords, email)
	return nil
}

// Exists reports whether email has an account.
func (s *IdentityStub) Exists(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.passwords[models.NormalizeEmail(email)]
	return ok
}

// Verify accepts any token built by TokenFor.
func (s *IdentityStub) Verify(_ context.Context, token string) (*identity.Principal, error) {
	email, ok := strings.CutPrefix(token, "token:")
	if !ok || email == "" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Principal{Email: email, Subject: models.DerivedIdentity(email)}, nil
}

// TokenFor returns the bearer token IdentityStub issues for email.
func TokenFor(email string) string {
	return "token:" + models.NormalizeEmail(email)
}
