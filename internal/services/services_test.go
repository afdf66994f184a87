package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-manager.com/task-manager/internal/auth"
	"task-manager.com/task-manager/internal/cache"
	"task-manager.com/task-manager/internal/constants"
	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
	model "task-manager.com/task-manager/internal/models"
	repository "task-manager.com/task-manager/internal/repositories"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database")
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Task{}), "failed to migrate database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// steppingClock hands out strictly increasing timestamps so creation order is deterministic.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type taskFixture struct {
	db      *gorm.DB
	repo    *repository.TaskRepository
	backend *cache.MemoryBackend
	cache   *cache.TaskListCache
	service *TaskService
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	db := setupTestDB(t)
	repo := repository.NewTaskRepository(db).WithClock(steppingClock())
	backend := cache.NewMemoryBackend()
	listCache := cache.NewTaskListCache(backend, cache.DefaultTTL, nil)

	return &taskFixture{
		db:      db,
		repo:    repo,
		backend: backend,
		cache:   listCache,
		service: NewTaskService(repo, listCache, nil),
	}
}

func identity(owner string) auth.Identity {
	return auth.Identity{OwnerID: owner, Email: owner + "@x.com"}
}

func decodeList(t *testing.T, raw json.RawMessage) []dto.TaskResponse {
	t.Helper()
	var out []dto.TaskResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func TestTaskService_CreateDefaultsAndOwner(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, identity("alice"), dto.CreateTaskRequest{
		Title:       "  T1  ",
		Description: " first ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "T1", task.Title)
	assert.Equal(t, "first", task.Description)
	assert.Equal(t, constants.StatusPending, task.Status)
	assert.Equal(t, "alice", task.Owner)
	assert.Nil(t, task.DueDate)
}

func TestTaskService_CreateRequiresTitle(t *testing.T) {
	f := newTaskFixture(t)

	for _, title := range []string{"", "   "} {
		_, err := f.service.Create(context.Background(), identity("alice"), dto.CreateTaskRequest{Title: title})
		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
}

func TestTaskService_RequiresIdentity(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	anon := auth.Identity{}

	_, err := f.service.List(ctx, anon, dto.TaskFilter{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.service.Create(ctx, anon, dto.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.service.Update(ctx, anon, "id", dto.UpdateTaskRequest{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	assert.ErrorIs(t, f.service.Delete(ctx, anon, "id"), apperrors.ErrUnauthorized)
}

func TestTaskService_ListNewestFirst(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.service.Create(ctx, identity("alice"), dto.CreateTaskRequest{Title: fmt.Sprintf("T%d", i)})
		require.NoError(t, err)
	}

	raw, err := f.service.List(ctx, identity("alice"), dto.TaskFilter{})
	require.NoError(t, err)
	tasks := decodeList(t, raw)

	require.Len(t, tasks, 5)
	for i, task := range tasks {
		assert.Equal(t, fmt.Sprintf("T%d", 5-i), task.Title)
	}
	for i := 1; i < len(tasks); i++ {
		assert.True(t, tasks[i-1].CreatedAt.After(tasks[i].CreatedAt))
	}
}

func TestTaskService_ListOwnerIsolation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, identity("alice"), dto.CreateTaskRequest{Title: "alice task"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, identity("bob"), dto.CreateTaskRequest{Title: "bob task"})
	require.NoError(t, err)

	raw, err := f.service.List(ctx, identity("bob"), dto.TaskFilter{})
	require.NoError(t, err)
	tasks := decodeList(t, raw)

	require.Len(t, tasks, 1)
	assert.Equal(t, "bob task", tasks[0].Title)
	assert.Equal(t, "bob", tasks[0].Owner)
}

func TestTaskService_ListFilters(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	create := func(title string, due *time.Time) *dto.TaskResponse {
		task, err := f.service.Create(ctx, alice, dto.CreateTaskRequest{
			Title:   title,
			DueDate: dto.NullableTime{Set: due != nil, Value: due},
		})
		require.NoError(t, err)
		return task
	}

	create("jan", timePtr(jan))
	febTask := create("feb", timePtr(feb))
	create("mar", timePtr(mar))
	create("undated", nil)

	_, err := f.service.Update(ctx, alice, febTask.ID, dto.UpdateTaskRequest{Status: strPtr("completed")})
	require.NoError(t, err)

	titles := func(filter dto.TaskFilter) []string {
		raw, err := f.service.List(ctx, alice, filter)
		require.NoError(t, err)
		var out []string
		for _, task := range decodeList(t, raw) {
			out = append(out, task.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		filter dto.TaskFilter
		want   []string
	}{
		{"all", dto.TaskFilter{}, []string{"undated", "mar", "feb", "jan"}},
		{"completed", dto.TaskFilter{Status: "completed"}, []string{"feb"}},
		{"pending", dto.TaskFilter{Status: "pending"}, []string{"undated", "mar", "jan"}},
		{"invalid status ignored", dto.TaskFilter{Status: "done"}, []string{"undated", "mar", "feb", "jan"}},
		{"due before inclusive", dto.TaskFilter{DueBefore: timePtr(feb)}, []string{"feb", "jan"}},
		{"due after inclusive", dto.TaskFilter{DueAfter: timePtr(feb)}, []string{"mar", "feb"}},
		{"window", dto.TaskFilter{DueAfter: timePtr(jan.Add(time.Hour)), DueBefore: timePtr(mar.Add(-time.Hour))}, []string{"feb"}},
		{"window and status", dto.TaskFilter{Status: "pending", DueAfter: timePtr(jan), DueBefore: timePtr(feb)}, []string{"jan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(tt.filter))
		})
	}
}

func TestTaskService_ListCachedOutputIsByteIdentical(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	_, err := f.service.Create(ctx, alice, dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)

	filter := dto.TaskFilter{Status: "pending"}
	first, err := f.service.List(ctx, alice, filter)
	require.NoError(t, err)

	// Change the store behind the cache's back: a hit must not consult it.
	require.NoError(t, f.db.Model(&model.Task{}).Where("owner = ?", "alice").Update("title", "changed").Error)

	second, err := f.service.List(ctx, alice, filter)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, uint64(1), f.cache.Stats().Hits)
}

func TestTaskService_MutationsInvalidateEveryFilter(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	filters := []dto.TaskFilter{
		{},
		{Status: "pending"},
		{Status: "completed"},
		{DueBefore: timePtr(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))},
	}
	warm := func() {
		for _, filter := range filters {
			_, err := f.service.List(ctx, alice, filter)
			require.NoError(t, err)
		}
	}
	countAll := func(filter dto.TaskFilter) int {
		raw, err := f.service.List(ctx, alice, filter)
		require.NoError(t, err)
		return len(decodeList(t, raw))
	}

	warm()
	task, err := f.service.Create(ctx, alice, dto.CreateTaskRequest{
		Title:   "T1",
		DueDate: dto.NullableTime{Set: true, Value: timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countAll(dto.TaskFilter{}))
	assert.Equal(t, 1, countAll(dto.TaskFilter{Status: "pending"}))
	assert.Equal(t, 1, countAll(filters[3]))

	warm()
	_, err = f.service.Update(ctx, alice, task.ID, dto.UpdateTaskRequest{Status: strPtr("completed")})
	require.NoError(t, err)
	assert.Equal(t, 0, countAll(dto.TaskFilter{Status: "pending"}))
	assert.Equal(t, 1, countAll(dto.TaskFilter{Status: "completed"}))

	warm()
	require.NoError(t, f.service.Delete(ctx, alice, task.ID))
	for _, filter := range filters {
		assert.Equal(t, 0, countAll(filter))
	}
}

func TestTaskService_MutationOnlyInvalidatesOwner(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.service.List(ctx, identity("bob"), dto.TaskFilter{})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, identity("alice"), dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)

	_, _, ok := f.cache.Get(ctx, cache.ListKey{Owner: "bob"})
	assert.True(t, ok)
}

func TestTaskService_UpdatePartial(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	alice := identity("alice")
	due := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	created, err := f.service.Create(ctx, alice, dto.CreateTaskRequest{
		Title:       "T1",
		Description: "keep me",
		DueDate:     dto.NullableTime{Set: true, Value: &due},
	})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, alice, created.ID, dto.UpdateTaskRequest{Title: strPtr("T1 renamed")})
	require.NoError(t, err)
	assert.Equal(t, "T1 renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, constants.StatusPending, updated.Status)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	cleared, err := f.service.Update(ctx, alice, created.ID, dto.UpdateTaskRequest{DueDate: dto.NullableTime{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
	assert.Equal(t, "T1 renamed", cleared.Title)
}

func TestTaskService_UpdateRejectsInvalidFields(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	created, err := f.service.Create(ctx, alice, dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, alice, created.ID, dto.UpdateTaskRequest{Status: strPtr("archived")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	_, err = f.service.Update(ctx, alice, created.ID, dto.UpdateTaskRequest{Title: strPtr(" ")})
	assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
}

func TestTaskService_CrossOwnerUpdateDeleteAreNotFound(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, identity("alice"), dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, identity("bob"), task.ID, dto.UpdateTaskRequest{Status: strPtr("completed")})
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	err = f.service.Delete(ctx, identity("bob"), task.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	_, missingErr := f.service.Update(ctx, identity("bob"), uuid.NewString(), dto.UpdateTaskRequest{})
	assert.Equal(t, err.Error(), missingErr.Error(), "foreign and missing tasks must look the same")

	var stored model.Task
	require.NoError(t, f.db.First(&stored, "id = ?", task.ID).Error)
	assert.Equal(t, constants.StatusPending, stored.Status)
	assert.Equal(t, "T1", stored.Title)
}

func TestTaskService_ConcurrentCreates(t *testing.T) {
	f := newTaskFixture(t)
	alice := identity("alice")

	const concurrentCount = 50
	var wg sync.WaitGroup
	wg.Add(concurrentCount)

	errs := make(chan error, concurrentCount)

	for i := 0; i < concurrentCount; i++ {
		go func(idx int) {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), alice, dto.CreateTaskRequest{Title: fmt.Sprintf("T%d", idx)})
			if err != nil {
				errs <- err
			}
			if _, err := f.service.List(context.Background(), alice, dto.TaskFilter{}); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent request failed: %v", err)
	}

	raw, err := f.service.List(context.Background(), alice, dto.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, decodeList(t, raw), concurrentCount)
}

// gatedTaskStore holds the first List call after it has read the store,
// until release is closed.
type gatedTaskStore struct {
	*repository.TaskRepository

	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newGatedTaskStore(repo *repository.TaskRepository) *gatedTaskStore {
	return &gatedTaskStore{
		TaskRepository: repo,
		read:           make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedTaskStore) List(ctx context.Context, q repository.TaskQuery) ([]model.Task, error) {
	tasks, err := g.TaskRepository.List(ctx, q)

	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
	return tasks, err
}

func TestTaskService_ListReadBeforeMutationIsNotCached(t *testing.T) {
	f := newTaskFixture(t)
	store := newGatedTaskStore(f.repo)
	svc := NewTaskService(store, f.cache, nil)
	ctx := context.Background()
	alice := identity("alice")

	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := svc.List(ctx, alice, dto.TaskFilter{})
		done <- result{raw, err}
	}()

	<-store.read
	_, err := svc.Create(ctx, alice, dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)
	close(store.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Empty(t, decodeList(t, first.raw), "the in-flight read started before the create")

	raw, err := svc.List(ctx, alice, dto.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, decodeList(t, raw), 1)
	assert.Equal(t, uint64(1), f.cache.Stats().Discarded)

	cached, err := svc.List(ctx, alice, dto.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(cached))
}

type brokenTaskStore struct{}

func (brokenTaskStore) CreateTask(ctx context.Context, task *model.Task) error {
	return errors.New("database is locked")
}

func (brokenTaskStore) List(ctx context.Context, q repository.TaskQuery) ([]model.Task, error) {
	return nil, errors.New("database is locked")
}

func (brokenTaskStore) UpdateOwned(ctx context.Context, id, owner string, fields map[string]interface{}) (*model.Task, error) {
	return nil, errors.New("database is locked")
}

func (brokenTaskStore) DeleteOwned(ctx context.Context, id, owner string) error {
	return errors.New("database is locked")
}

func TestTaskService_StoreFailuresAreInternal(t *testing.T) {
	svc := NewTaskService(brokenTaskStore{}, nil, nil)
	ctx := context.Background()
	alice := identity("alice")

	_, err := svc.List(ctx, alice, dto.TaskFilter{})
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Equal(t, "Failed to list tasks", apperrors.PublicMessage(err, ""))

	_, err = svc.Create(ctx, alice, dto.CreateTaskRequest{Title: "T1"})
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	_, err = svc.Update(ctx, alice, "id", dto.UpdateTaskRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	assert.ErrorIs(t, svc.Delete(ctx, alice, "id"), apperrors.ErrInternal)
}

type downBackend struct{}

func (downBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (downBackend) SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}

func (downBackend) Generation(ctx context.Context, genKey string) (int64, error) {
	return 0, errors.New("dial tcp: connection refused")
}

func (downBackend) IncrGeneration(ctx context.Context, genKey string) (int64, error) {
	return 0, errors.New("dial tcp: connection refused")
}

func (downBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return 0, errors.New("dial tcp: connection refused")
}

func TestTaskService_CacheOutageDoesNotFailRequests(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTaskRepository(db)
	svc := NewTaskService(repo, cache.NewTaskListCache(downBackend{}, cache.DefaultTTL, nil), nil)
	ctx := context.Background()
	alice := identity("alice")

	task, err := svc.Create(ctx, alice, dto.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)

	raw, err := svc.List(ctx, alice, dto.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, decodeList(t, raw), 1)

	_, err = svc.Update(ctx, alice, task.ID, dto.UpdateTaskRequest{Status: strPtr("completed")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, alice, task.ID))
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	db := setupTestDB(t)
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	return NewAuthService(repository.NewUserRepository(db), hasher, tokens, nil)
}

func TestAuthService_RegisterOnce(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "A@X.com ", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.NotEmpty(t, res.User.ID)

	_, err = svc.Register(ctx, "a@x.com", "pw123456")
	assert.ErrorIs(t, err, apperrors.ErrUserExists)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newAuthService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", "pw123456"},
		{"missing password", "a@x.com", ""},
		{"bad email", "not-an-email", "pw123456"},
		{"short password", "a@x.com", "pw1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestAuthService_TokenCarriesIdentity(t *testing.T) {
	db := setupTestDB(t)
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(repository.NewUserRepository(db), hasher, tokens, nil)

	res, err := svc.Register(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	id, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.OwnerID)
	assert.Equal(t, "a@x.com", id.Email)

	var stored model.User
	require.NoError(t, db.First(&stored, "email = ?", "a@x.com").Error)
	assert.NotEqual(t, "pw123456", stored.Password)
}

func TestAuthService_Login(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "A@x.com", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "a@x.com", res.User.Email)

	_, err = svc.Login(ctx, "", "pw123456")
	assert.ErrorIs(t, err, apperrors.ErrCredentialsRequired)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "pw123456")
	_, wrongErr := svc.Login(ctx, "a@x.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, apperrors.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}
