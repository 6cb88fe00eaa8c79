package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/commboard/config"
	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// fakeFiles hands out a fresh URL per save, records deletions and reports
// each one on deleted.
type fakeFiles struct {
	mu      sync.Mutex
	saved   int
	removed []string
	deleted chan string
	saveErr error
	err     error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{deleted: make(chan string, 16)}
}

func (f *fakeFiles) Save(fh *multipart.FileHeader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved++
	return fmt.Sprintf("%s%d-%s", utils.UploadURLPrefix, f.saved, fh.Filename), nil
}

func (f *fakeFiles) Delete(url string) error {
	f.mu.Lock()
	f.removed = append(f.removed, url)
	f.mu.Unlock()
	f.deleted <- url
	return f.err
}

func (f *fakeFiles) removedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *fakeFiles) waitDeleted(t *testing.T) string {
	t.Helper()
	select {
	case url := <-f.deleted:
		return url
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for image deletion")
		return ""
	}
}

type fixture struct {
	store *store.GormStore
	files *fakeFiles
	deps  Deps
	posts *PostService
	users *UserService
	auth  *AuthService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, cache utils.Cache) *fixture {
	t.Helper()
	cfg := config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   "silent",
	}
	db, err := config.InitDatabase(cfg, store.Models()...)
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{store: store.NewGormStore(db), files: newFakeFiles()}
	f.deps = Deps{
		Store:  f.store,
		Cache:  cache,
		Files:  f.files,
		Tokens: utils.NewTokenManager("test-secret", time.Hour),
		Locks:  utils.NewKeyedMutex(),
	}
	f.posts = NewPostService(f.deps)
	f.users = NewUserService(f.deps)
	f.auth = NewAuthService(f.deps)
	return f
}

func (f *fixture) register(t *testing.T, name, email string) string {
	t.Helper()
	sess, err := f.auth.Register(context.Background(), name, email, "secret123")
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return sess.User.ID
}

func (f *fixture) createPost(t *testing.T, authorID, title string) *models.Post {
	t.Helper()
	p, err := f.posts.CreatePost(context.Background(), authorID, PostInput{
		Title:   title,
		Content: "content of " + title,
		Type:    models.PostTypeIssue,
	})
	if err != nil {
		t.Fatalf("CreatePost(%s): %v", title, err)
	}
	return p
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser(%s): %v", id, err)
	}
	return u
}

func upload(name string) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name, Size: 16}
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
