package poems

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "poems_test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unexpected error obtaining sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Poem{}, &Image{}); err != nil {
		t.Fatalf("unexpected error migrating schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database: newTestDatabase(t),
		Clock:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing service: %v", err)
	}
	return service
}

func mustCreatePoem(t *testing.T, service *Service, content string) uint {
	t.Helper()
	poemID, err := service.CreatePoem(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("unexpected error creating poem: %v", err)
	}
	return poemID
}
