package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/database"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type env struct {
	db      *gorm.DB
	dir     string
	store   *storage.DiskStore
	quizzes *QuizService
	results *ResultService
	users   *UserService
	auth    *AuthService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)
	return &env{
		db:      db,
		dir:     dir,
		store:   store,
		quizzes: NewQuizService(db, store, cache.Nop{}),
		results: NewResultService(db, cache.Nop{}),
		users:   NewUserService(db, store, cache.Nop{}),
		auth:    NewAuthService(db, store, "test-secret", "admin@example.com"),
	}
}

func createUser(t *testing.T, db *gorm.DB, email, role string) Actor {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return Actor{UserID: u.ID, Role: u.Role}
}

func (e *env) fileExists(ref string) bool {
	return fileExists(filepath.Join(e.dir, strings.TrimPrefix(ref, storage.PublicPrefix)))
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func png(name string) *storage.File {
	return storage.FromBytes(name+".png", []byte("img-"+name))
}

func twoByTwo() []QuestionInput {
	return []QuestionInput{
		{Text: "2+2?", Answers: []AnswerInput{{Text: "4", IsCorrect: true}, {Text: "5"}}},
		{Text: "Primes?", Answers: []AnswerInput{{Text: "2", IsCorrect: true}, {Text: "3", IsCorrect: true}}},
	}
}

// flakyStore fails the failAt-th Save (1-based).
type flakyStore struct {
	storage.Store
	mu     sync.Mutex
	saves  int
	failAt int
}

func (s *flakyStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	s.mu.Lock()
	s.saves++
	n := s.saves
	s.mu.Unlock()
	if n == s.failAt {
		return "", errors.New("disk full")
	}
	return s.Store.Save(ctx, name, r)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
