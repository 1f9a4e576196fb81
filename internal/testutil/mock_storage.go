// mock_storage.go - Mock storage implementations for testing
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mediayear/backend/internal/analysis"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/storage"
)

// MockStorage implements storage.Store, writing files to a temp directory so that
// GetFilePath returns a readable path.
type MockStorage struct {
	files   map[string]*models.FileInfo
	tempDir string
	deleted []string
	mu      sync.RWMutex

	// SaveErr, when set, is returned by Save.
	SaveErr error
}

// NewMockStorage creates a mock storage backed by tempDir
func NewMockStorage(tempDir string) *MockStorage {
	return &MockStorage{
		files:   make(map[string]*models.FileInfo),
		tempDir: tempDir,
	}
}

func (m *MockStorage) Save(name, contentType string, r io.Reader) (*models.FileInfo, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := generateTestID()
	if err := os.WriteFile(filepath.Join(m.tempDir, id), data, 0644); err != nil {
		return nil, err
	}
	file := &models.FileInfo{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		Status:      "uploaded",
	}
	m.files[id] = file
	return file, nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return file, nil
}

func (m *MockStorage) Open(id string) (io.ReadCloser, error) {
	path, err := m.GetFilePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", errors.New("file not found")
	}
	return filepath.Join(m.tempDir, id), nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []*models.FileInfo
	for _, file := range m.files {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].UploadedAt.After(files[j].UploadedAt) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return errors.New("file not found")
	}
	delete(m.files, id)
	m.deleted = append(m.deleted, id)
	return os.Remove(filepath.Join(m.tempDir, id))
}

func (m *MockStorage) CleanupOlderThan(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, file := range m.files {
		if file.UploadedAt.Before(cutoff) {
			delete(m.files, id)
			os.Remove(filepath.Join(m.tempDir, id))
			removed++
		}
	}
	return removed, nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Deleted returns the IDs removed through Delete, in order.
func (m *MockStorage) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}

// MockAnalysisStore implements analysis.Store in memory
type MockAnalysisStore struct {
	mu       sync.Mutex
	analyses []*models.MediaAnalysis
	nextID   int64
	inserts  int

	// Err, when set, is returned by every method except Close.
	Err error
}

// NewMockAnalysisStore creates an empty analysis store
func NewMockAnalysisStore(seed ...*models.MediaAnalysis) *MockAnalysisStore {
	m := &MockAnalysisStore{}
	for _, a := range seed {
		m.nextID++
		a.ID = m.nextID
		m.analyses = append(m.analyses, a)
	}
	return m
}

func (m *MockAnalysisStore) Insert(ctx context.Context, analyses []*models.MediaAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, a := range analyses {
		m.nextID++
		a.ID = m.nextID
		m.analyses = append(m.analyses, a)
	}
	m.inserts++
	return nil
}

func (m *MockAnalysisStore) ListRecent(ctx context.Context, limit int) ([]*models.MediaAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := append([]*models.MediaAnalysis(nil), m.analyses...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockAnalysisStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.analyses), nil
}

func (m *MockAnalysisStore) Close() error { return nil }

// Inserts returns the number of successful Insert calls.
func (m *MockAnalysisStore) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

var _ analysis.Store = (*MockAnalysisStore)(nil)
