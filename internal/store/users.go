package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"cinefuse/internal/models"
)

const usersFile = "users.json"

var (
	ErrUserExists         = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserStore holds the account list in a single users.json.
type UserStore struct {
	fileStore
}

// NewUserStore creates a user store rooted at dir.
func NewUserStore(dir string) *UserStore {
	return NewUserStoreWithFs(afero.NewOsFs(), dir)
}

// NewUserStoreWithFs creates a user store on the given filesystem.
func NewUserStoreWithFs(fs afero.Fs, dir string) *UserStore {
	return &UserStore{fileStore: newFileStore(fs, dir, "users")}
}

// Create registers a new account. The first account ever created gets
// admin, matching the usual self-hosted setup flow.
func (s *UserStore) Create(username, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return nil, ErrUserExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      len(users) == 0,
		CreatedAt:    time.Now().UTC(),
	}
	users = append(users, user)

	if err := s.save(usersFile, users); err != nil {
		return nil, err
	}
	s.log.Info("user created", "username", username, "admin", user.IsAdmin)
	return &user, nil
}

// Authenticate verifies a username/password pair. The error is the same
// for an unknown user and a wrong password.
func (s *UserStore) Authenticate(username, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &u, nil
	}
	return nil, ErrInvalidCredentials
}

// GetByID looks up an account by id.
func (s *UserStore) GetByID(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// Count returns how many accounts exist; the setup flow uses it to
// decide whether first-run registration is open.
func (s *UserStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return 0, err
	}
	return len(users), nil
}

// ChangePassword replaces the password hash after verifying the current
// password.
func (s *UserStore) ChangePassword(id, currentPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := s.load(usersFile, &users); err != nil {
		return err
	}
	for i, u := range users {
		if u.ID != id {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
			return ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		users[i].PasswordHash = string(hash)
		return s.save(usersFile, users)
	}
	return ErrUserNotFound
}
