package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/todokeeper/internal/client/models"
	"github.com/dmitrijs2005/todokeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/todokeeper/internal/logging"
	_ "modernc.org/sqlite"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClock returns strictly increasing timestamps one millisecond apart,
// so timestamp-derived ids never collide within a test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStorage(t *testing.T, opts ...StorageOption) StorageService {
	t.Helper()
	base := []StorageOption{WithClock(newFakeClock().Now)}
	return NewStorageService(kv.NewInMemoryRepository(), discardLogger(), append(base, opts...)...)
}

// failingRepo wraps a Repository and fails selected operations.
type failingRepo struct {
	kv.Repository
	failSet bool
	failGet bool
}

var errBroken = errors.New("broken store")

func (r *failingRepo) Set(ctx context.Context, key string, value []byte) error {
	if r.failSet {
		return errBroken
	}
	return r.Repository.Set(ctx, key, value)
}

func (r *failingRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if r.failGet {
		return nil, errBroken
	}
	return r.Repository.Get(ctx, key)
}

// ---------- users ----------

func TestListUsers_EmptyWhenAbsent(t *testing.T) {
	s := newTestStorage(t)
	users := s.ListUsers(context.Background())
	require.NotNil(t, users)
	require.Empty(t, users)
}

func TestListUsers_CorruptRecordDegradesToEmpty(t *testing.T) {
	repo := kv.NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "users", []byte("{not json")))

	var sunk []string
	s := NewStorageService(repo, discardLogger(), WithErrorSink(func(op, key string, err error) {
		sunk = append(sunk, op+"/"+key)
	}))

	users := s.ListUsers(ctx)
	require.Empty(t, users)
	require.Equal(t, []string{"ListUsers/users"}, sunk)
}

func TestSaveUser_AppendsThenReplacesById(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	s.SaveUser(ctx, models.User{ID: "1", Email: "a@x.com", Name: "Ann"})
	s.SaveUser(ctx, models.User{ID: "2", Email: "b@x.com", Name: "Bob"})
	s.SaveUser(ctx, models.User{ID: "1", Email: "a@x.com", Name: "Anna"})

	users := s.ListUsers(ctx)
	require.Len(t, users, 2)
	assert.Equal(t, "Anna", users[0].Name)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestFindUserByEmail(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	s.SaveUser(ctx, models.User{ID: "1", Email: "a@x.com", Name: "Ann"})

	u := s.FindUserByEmail(ctx, "a@x.com")
	require.NotNil(t, u)
	assert.Equal(t, "Ann", u.Name)

	require.Nil(t, s.FindUserByEmail(ctx, "nobody@x.com"))
}

// ---------- session pointer ----------

func TestCurrentUser_RoundTripAndClear(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.Nil(t, s.CurrentUser(ctx))

	s.SetCurrentUser(ctx, &models.User{ID: "1", Email: "a@x.com"})
	u := s.CurrentUser(ctx)
	require.NotNil(t, u)
	assert.Equal(t, "a@x.com", u.Email)

	s.SetCurrentUser(ctx, nil)
	require.Nil(t, s.CurrentUser(ctx))
}

func TestCurrentUser_IsACopyNotALiveReference(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	user := models.User{ID: "1", Email: "a@x.com", Name: "Ann"}
	s.SetCurrentUser(ctx, &user)

	// editing the users collection afterwards must not change the pointer
	user.Name = "Anna"
	s.SaveUser(ctx, user)

	stored := s.CurrentUser(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, "Ann", stored.Name)
}

// ---------- todos ----------

func TestAddTodo_StartsUncompletedWithEqualTimestamps(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	todo := s.AddTodo(ctx, "u1", "buy milk")

	assert.False(t, todo.Completed)
	assert.Equal(t, "buy milk", todo.Text)
	assert.NotEmpty(t, todo.ID)
	assert.True(t, todo.CreatedAt.Equal(todo.UpdatedAt))

	stored := s.ListTodos(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, todo.ID, stored[0].ID)
}

func TestUpdateTodo_MergesPatchAndAdvancesUpdatedAt(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	todo := s.AddTodo(ctx, "u1", "buy milk")

	done := true
	s.UpdateTodo(ctx, "u1", todo.ID, models.TodoPatch{Completed: &done})

	stored := s.ListTodos(ctx, "u1")
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Completed)
	assert.Equal(t, "buy milk", stored[0].Text)
	assert.Equal(t, todo.ID, stored[0].ID)
	assert.True(t, stored[0].CreatedAt.Equal(todo.CreatedAt))
	assert.True(t, stored[0].UpdatedAt.After(todo.UpdatedAt))

	text := "buy oat milk"
	s.UpdateTodo(ctx, "u1", todo.ID, models.TodoPatch{Text: &text})

	stored = s.ListTodos(ctx, "u1")
	assert.Equal(t, "buy oat milk", stored[0].Text)
	assert.True(t, stored[0].Completed)
}

func TestUpdateTodo_UnknownIdIsNoop(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	todo := s.AddTodo(ctx, "u1", "buy milk")

	done := true
	s.UpdateTodo(ctx, "u1", "999", models.TodoPatch{Completed: &done})

	stored := s.ListTodos(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, todo.ID, stored[0].ID)
	assert.Equal(t, todo.Text, stored[0].Text)
	assert.False(t, stored[0].Completed)
	assert.True(t, stored[0].UpdatedAt.Equal(todo.UpdatedAt))
}

func TestDeleteTodo_RemovesById_UnknownIdLeavesCollection(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	a := s.AddTodo(ctx, "u1", "one")
	b := s.AddTodo(ctx, "u1", "two")

	s.DeleteTodo(ctx, "u1", "999")
	require.Len(t, s.ListTodos(ctx, "u1"), 2)

	s.DeleteTodo(ctx, "u1", a.ID)
	stored := s.ListTodos(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
}

func TestTodos_AreScopedPerUser(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	s.AddTodo(ctx, "u1", "mine")
	s.AddTodo(ctx, "u2", "yours")

	require.Len(t, s.ListTodos(ctx, "u1"), 1)
	require.Len(t, s.ListTodos(ctx, "u2"), 1)
	assert.Equal(t, "mine", s.ListTodos(ctx, "u1")[0].Text)
}

// TestTodoOperations_MatchReferenceModel replays a sequence of mutations
// against both the service and a plain in-memory model and compares the
// final persisted collection.
func TestTodoOperations_MatchReferenceModel(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	type op struct {
		kind string // add, toggle, edit, delete
		arg  string
	}

	var model []models.Todo
	findInModel := func(id string) *models.Todo {
		for i := range model {
			if model[i].ID == id {
				return &model[i]
			}
		}
		return nil
	}

	var ids []string
	ops := []op{
		{"add", "one"}, {"add", "two"}, {"add", "three"},
		{"toggle", "0"}, {"edit", "1"}, {"delete", "2"},
		{"add", "four"}, {"toggle", "0"}, {"delete", "1"},
	}

	for _, o := range ops {
		switch o.kind {
		case "add":
			todo := s.AddTodo(ctx, "u1", o.arg)
			ids = append(ids, todo.ID)
			model = append(model, todo)
		case "toggle":
			id := ids[int(o.arg[0]-'0')]
			m := findInModel(id)
			v := !m.Completed
			s.UpdateTodo(ctx, "u1", id, models.TodoPatch{Completed: &v})
			m.Completed = v
		case "edit":
			id := ids[int(o.arg[0]-'0')]
			text := "edited"
			s.UpdateTodo(ctx, "u1", id, models.TodoPatch{Text: &text})
			findInModel(id).Text = text
		case "delete":
			id := ids[int(o.arg[0]-'0')]
			filtered := model[:0]
			for _, m := range model {
				if m.ID != id {
					filtered = append(filtered, m)
				}
			}
			model = filtered
			s.DeleteTodo(ctx, "u1", id)
		}
	}

	stored := s.ListTodos(ctx, "u1")
	require.Len(t, stored, len(model))
	for i := range model {
		assert.Equal(t, model[i].ID, stored[i].ID)
		assert.Equal(t, model[i].Text, stored[i].Text)
		assert.Equal(t, model[i].Completed, stored[i].Completed)
		assert.True(t, model[i].CreatedAt.Equal(stored[i].CreatedAt))
	}
}

// ---------- failure contract ----------

func TestWriteFailure_IsSwallowedAndSunk(t *testing.T) {
	repo := &failingRepo{Repository: kv.NewInMemoryRepository(), failSet: true}

	var sunk []error
	s := NewStorageService(repo, discardLogger(),
		WithClock(newFakeClock().Now),
		WithErrorSink(func(op, key string, err error) { sunk = append(sunk, err) }))
	ctx := context.Background()

	// the caller still gets the constructed todo back
	todo := s.AddTodo(ctx, "u1", "buy milk")
	assert.Equal(t, "buy milk", todo.Text)

	require.Len(t, sunk, 1)
	assert.ErrorIs(t, sunk[0], errBroken)

	// nothing was persisted
	repo.failSet = false
	require.Empty(t, s.ListTodos(ctx, "u1"))
}

func TestReadFailure_DegradesToEmpty(t *testing.T) {
	repo := &failingRepo{Repository: kv.NewInMemoryRepository(), failGet: true}
	s := NewStorageService(repo, discardLogger())
	ctx := context.Background()

	require.Empty(t, s.ListUsers(ctx))
	require.Empty(t, s.ListTodos(ctx, "u1"))
	require.Nil(t, s.CurrentUser(ctx))
}

// ---------- sqlite backing ----------

func TestStorage_OverSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	s := NewStorageService(kv.NewSQLiteRepository(db), discardLogger(), WithClock(newFakeClock().Now))
	ctx := context.Background()

	s.SaveUser(ctx, models.User{ID: "1", Email: "a@x.com", Name: "Ann", Password: "pw1"})
	todo := s.AddTodo(ctx, "1", "buy milk")

	done := true
	s.UpdateTodo(ctx, "1", todo.ID, models.TodoPatch{Completed: &done})

	stored := s.ListTodos(ctx, "1")
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Completed)

	u := s.FindUserByEmail(ctx, "a@x.com")
	require.NotNil(t, u)
	assert.Equal(t, "pw1", u.Password)
}
