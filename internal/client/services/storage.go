// Package services contains the application services of the todo keeper:
// the storage service (durable users/todos/session-pointer state) and the
// session service (current-user lifecycle).
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/todokeeper/internal/client/models"
	"github.com/dmitrijs2005/todokeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/todokeeper/internal/common"
	"github.com/dmitrijs2005/todokeeper/internal/logging"
)

// Key layout of the flat namespace. todos are stored per user under
// todosKeyPrefix + userID.
const (
	usersKey       = "users"
	currentUserKey = "currentUser"
	todosKeyPrefix = "todos_"
)

// ErrorSink receives structured notifications about storage failures that
// the service otherwise swallows. op names the failed operation, key the
// affected record.
type ErrorSink func(op string, key string, err error)

// StorageService maps domain records to JSON values in the key-value store.
//
// Failure contract (kept for compatibility with data and behavior of the
// mobile app this replaces):
//   - reads degrade to an empty result when the key is absent, the stored
//     value does not decode, or the store fails;
//   - writes are logged on failure and otherwise swallowed, so in-memory
//     state can run ahead of persisted state.
//
// Install an ErrorSink to observe the swallowed failures.
type StorageService interface {
	ListUsers(ctx context.Context) []models.User
	SaveUser(ctx context.Context, user models.User)
	FindUserByEmail(ctx context.Context, email string) *models.User

	CurrentUser(ctx context.Context) *models.User
	SetCurrentUser(ctx context.Context, user *models.User)

	ListTodos(ctx context.Context, userID string) []models.Todo
	SaveTodos(ctx context.Context, userID string, todos []models.Todo)
	AddTodo(ctx context.Context, userID string, text string) models.Todo
	UpdateTodo(ctx context.Context, userID string, todoID string, patch models.TodoPatch)
	DeleteTodo(ctx context.Context, userID string, todoID string)
}

type storageService struct {
	kv   kv.Repository
	log  logging.Logger
	now  func() time.Time
	sink ErrorSink
}

// StorageOption customizes a storage service.
type StorageOption func(*storageService)

// WithClock replaces the wall clock used for ids and timestamps.
func WithClock(now func() time.Time) StorageOption {
	return func(s *storageService) { s.now = now }
}

// WithErrorSink installs a sink that observes swallowed storage failures.
func WithErrorSink(sink ErrorSink) StorageOption {
	return func(s *storageService) { s.sink = sink }
}

// NewStorageService constructs a StorageService over the given repository.
func NewStorageService(repo kv.Repository, log logging.Logger, opts ...StorageOption) StorageService {
	s := &storageService{kv: repo, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func todosKey(userID string) string {
	return todosKeyPrefix + userID
}

// reportFailure sends a swallowed failure to the diagnostic channel and,
// when installed, the error sink.
func (s *storageService) reportFailure(ctx context.Context, op, key string, err error) {
	s.log.Error(ctx, "storage operation failed", "op", op, "key", key, "error", err)
	if s.sink != nil {
		s.sink(op, key, err)
	}
}

// readSlice loads and decodes a JSON array stored under key into out.
// Absent keys, store errors and decode errors all leave out untouched;
// only decode/store problems are reported.
func readSlice[T any](ctx context.Context, s *storageService, op, key string, out *[]T) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		s.reportFailure(ctx, op, key, err)
		return
	}
	if data == nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.reportFailure(ctx, op, key, err)
		*out = nil
	}
}

// writeJSON encodes v and stores it under key, swallowing failures.
func (s *storageService) writeJSON(ctx context.Context, op, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.reportFailure(ctx, op, key, err)
		return
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.reportFailure(ctx, op, key, err)
	}
}

// ListUsers returns all registered users, oldest first. An absent or
// unreadable record yields an empty slice.
func (s *storageService) ListUsers(ctx context.Context) []models.User {
	var users []models.User
	readSlice(ctx, s, "ListUsers", usersKey, &users)
	if users == nil {
		return []models.User{}
	}
	return users
}

// SaveUser upserts user by id into the users record and rewrites it whole.
func (s *storageService) SaveUser(ctx context.Context, user models.User) {
	users := s.ListUsers(ctx)

	replaced := false
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}

	s.writeJSON(ctx, "SaveUser", usersKey, users)
}

// FindUserByEmail scans the users record for a matching email.
// Returns nil when no user matches.
func (s *storageService) FindUserByEmail(ctx context.Context, email string) *models.User {
	for _, u := range s.ListUsers(ctx) {
		if u.Email == email {
			found := u
			return &found
		}
	}
	return nil
}

// CurrentUser reads the persisted session pointer. Returns nil when logged
// out or when the record cannot be read.
func (s *storageService) CurrentUser(ctx context.Context) *models.User {
	data, err := s.kv.Get(ctx, currentUserKey)
	if err != nil {
		s.reportFailure(ctx, "CurrentUser", currentUserKey, err)
		return nil
	}
	if data == nil {
		return nil
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.reportFailure(ctx, "CurrentUser", currentUserKey, err)
		return nil
	}
	return &user
}

// SetCurrentUser writes the session pointer, or removes the key when user
// is nil. The stored record is a copy: later edits to the user are not
// reflected unless it is saved again.
func (s *storageService) SetCurrentUser(ctx context.Context, user *models.User) {
	if user == nil {
		if err := s.kv.Delete(ctx, currentUserKey); err != nil {
			s.reportFailure(ctx, "SetCurrentUser", currentUserKey, err)
		}
		return
	}
	s.writeJSON(ctx, "SetCurrentUser", currentUserKey, user)
}

// ListTodos returns the user's todos in insertion order. An absent or
// unreadable record yields an empty slice.
func (s *storageService) ListTodos(ctx context.Context, userID string) []models.Todo {
	var todos []models.Todo
	readSlice(ctx, s, "ListTodos", todosKey(userID), &todos)
	if todos == nil {
		return []models.Todo{}
	}
	return todos
}

// SaveTodos overwrites the user's whole todos record.
func (s *storageService) SaveTodos(ctx context.Context, userID string, todos []models.Todo) {
	s.writeJSON(ctx, "SaveTodos", todosKey(userID), todos)
}

// AddTodo appends a new todo to the user's collection and persists it.
// The new todo starts uncompleted with createdAt == updatedAt.
func (s *storageService) AddTodo(ctx context.Context, userID string, text string) models.Todo {
	todos := s.ListTodos(ctx, userID)

	now := s.now()
	todo := models.Todo{
		ID:        common.TimestampID(now),
		Text:      text,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	todos = append(todos, todo)
	s.SaveTodos(ctx, userID, todos)
	return todo
}

// UpdateTodo merges patch over the todo with the given id, refreshes
// updatedAt and persists the whole collection. A missing id is a silent
// no-op.
func (s *storageService) UpdateTodo(ctx context.Context, userID string, todoID string, patch models.TodoPatch) {
	todos := s.ListTodos(ctx, userID)

	for i := range todos {
		if todos[i].ID != todoID {
			continue
		}
		if patch.Text != nil {
			todos[i].Text = *patch.Text
		}
		if patch.Completed != nil {
			todos[i].Completed = *patch.Completed
		}
		todos[i].UpdatedAt = s.now()
		s.SaveTodos(ctx, userID, todos)
		return
	}
}

// DeleteTodo filters the todo with the given id out of the collection and
// persists the rest. A missing id leaves the stored record unchanged.
func (s *storageService) DeleteTodo(ctx context.Context, userID string, todoID string) {
	todos := s.ListTodos(ctx, userID)

	filtered := make([]models.Todo, 0, len(todos))
	for _, todo := range todos {
		if todo.ID != todoID {
			filtered = append(filtered, todo)
		}
	}

	s.SaveTodos(ctx, userID, filtered)
}
