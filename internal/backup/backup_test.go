package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/rolodex/internal/config"
	"github.com/dukerupert/rolodex/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (m *mockS3Client) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func setupBackupTest(t *testing.T, cfg config.BackupConfig) (*Manager, *mockS3Client) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "rolodex.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(cfg, dbPath, db, slog.Default())
	mock := &mockS3Client{}
	m.client = mock
	m.status.State = StateIdle
	return m, mock
}

func TestManagerDisabledWithoutCredentials(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(config.BackupConfig{}, ":memory:", db, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error running a disabled backup")
	}
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	m, mock := setupBackupTest(t, config.BackupConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"})

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	keys := mock.keys()
	if len(keys) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(keys))
	}
	if !strings.HasPrefix(keys[0], "rolodex/backup-") || !strings.HasSuffix(keys[0], ".db") {
		t.Errorf("unexpected key %q", keys[0])
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("state = %q, want %q", status.State, StateIdle)
	}
	if status.LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
}

func TestRunNowEncryptsWithPassphrase(t *testing.T) {
	m, mock := setupBackupTest(t, config.BackupConfig{
		Bucket: "b", AccessKey: "a", SecretKey: "s", Passphrase: "pw",
	})

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	keys := mock.keys()
	if len(keys) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(keys))
	}
	if !strings.HasSuffix(keys[0], ".db.enc") {
		t.Errorf("key %q should carry the .enc suffix", keys[0])
	}

	// Encrypted payloads must not carry the sqlite header.
	if bytes.HasPrefix(mock.objects[keys[0]], []byte("SQLite format 3")) {
		t.Error("uploaded object looks unencrypted")
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock := setupBackupTest(t, config.BackupConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	mock.putErr = context.DeadlineExceeded

	if err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error when upload fails")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}
}

func TestStartStop(t *testing.T) {
	m, _ := setupBackupTest(t, config.BackupConfig{
		Bucket: "b", AccessKey: "a", SecretKey: "s", Interval: time.Hour,
	})

	m.Start(context.Background())
	m.Stop()
}
