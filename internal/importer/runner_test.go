package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStatusStore is an in-memory domain.JobStatusStore.
type memStatusStore struct {
	mu       sync.Mutex
	statuses map[string][]*domain.ImportJobStatus
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{statuses: make(map[string][]*domain.ImportJobStatus)}
}

func (s *memStatusStore) Set(ctx context.Context, key string, status *domain.ImportJobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *status
	s.statuses[key] = append(s.statuses[key], &copied)
	return nil
}

func (s *memStatusStore) Get(ctx context.Context, key string) (*domain.ImportJobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.statuses[key]
	if len(history) == 0 {
		return &domain.ImportJobStatus{Status: domain.ImportIdle}, nil
	}
	return history[len(history)-1], nil
}

func (s *memStatusStore) history(key string) []*domain.ImportJobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[key]
}

// MockActRepository mocks the ActRepository interface
type MockActRepository struct {
	mock.Mock
}

func (m *MockActRepository) Get(ctx context.Context, id int64) (*domain.Act, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Act), args.Error(1)
}

func (m *MockActRepository) List(ctx context.Context, filter domain.ActFilter) ([]domain.Act, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Act), args.Int(1), args.Error(2)
}

func (m *MockActRepository) FilterOptions(ctx context.Context) (*domain.ActFilterOptions, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActFilterOptions), args.Error(1)
}

func (m *MockActRepository) BulkInsert(ctx context.Context, acts []domain.Act) (int, error) {
	args := m.Called(ctx, acts)
	return args.Int(0), args.Error(1)
}

func (m *MockActRepository) BulkUpsert(ctx context.Context, acts []domain.Act) (int, error) {
	args := m.Called(ctx, acts)
	return args.Int(0), args.Error(1)
}

func newTestRunner(t *testing.T, fam Family, dir string, process FileProcessor, status domain.JobStatusStore) *Runner {
	t.Helper()
	archiver, err := NewArchiver(dir)
	require.NoError(t, err)
	return NewRunner(fam, dir, archiver, process, status)
}

func TestRunner_NoFiles(t *testing.T) {
	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), t.TempDir(), nil, store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportIdle, status.Status)
	assert.Equal(t, "No files to import", status.Message)
	assert.NotEmpty(t, status.JobID)

	// A running status was written before the terminal one.
	history := store.history(ActsStatusKey)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ImportRunning, history[0].Status)
}

func TestRunner_MissingFolderFails(t *testing.T) {
	dir := t.TempDir()
	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), filepath.Join(dir, "gone"), nil, store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportFailed, status.Status)
	assert.Contains(t, status.Message, "Import job failed")
}

func TestRunner_ImportsAndArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acts.xlsx")
	writeActsSheet(t, path, [][]any{
		{"1", "Karnataka", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "10-50"},
		{"2", "Kerala", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "1-10"},
	})

	repo := new(MockActRepository)
	repo.On("BulkInsert", mock.Anything, mock.AnythingOfType("[]domain.Act")).Return(2, nil)

	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), dir, ActsProcessor(repo), store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportCompleted, status.Status)
	assert.Equal(t, 2, status.RecordsProcessed)
	assert.Equal(t, 0, status.RecordsFailed)
	assert.Equal(t, 1, status.FilesProcessed)
	assert.Equal(t, "acts.xlsx", status.FileName)

	// The per-file progress status names the file being imported.
	history := store.history(ActsStatusKey)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ImportRunning, history[1].Status)
	assert.Equal(t, "acts.xlsx", history[1].FileName)

	// The source file moved to processed/ under a timestamped name.
	assert.NoFileExists(t, path)
	processed, err := os.ReadDir(filepath.Join(dir, "processed"))
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Contains(t, processed[0].Name(), "acts_")
}

func TestRunner_CountMismatchFailsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acts.xlsx")
	writeActsSheet(t, path, [][]any{
		{"1", "Karnataka", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "10-50"},
		{"2", "Kerala", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "1-10"},
	})

	repo := new(MockActRepository)
	repo.On("BulkInsert", mock.Anything, mock.Anything).Return(1, nil)

	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), dir, ActsProcessor(repo), store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportCompleted, status.Status)
	assert.Equal(t, 0, status.RecordsProcessed)
	assert.Equal(t, 1, status.RecordsFailed)

	// The mismatching file lands in failed/.
	failed, err := os.ReadDir(filepath.Join(dir, "failed"))
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestRunner_BadFileDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_broken.xlsx"), []byte("junk"), 0o644))
	writeActsSheet(t, filepath.Join(dir, "b_good.xlsx"), [][]any{
		{"1", "Karnataka", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "10-50"},
	})

	repo := new(MockActRepository)
	repo.On("BulkInsert", mock.Anything, mock.Anything).Return(1, nil)

	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), dir, ActsProcessor(repo), store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportCompleted, status.Status)
	assert.Equal(t, 1, status.RecordsProcessed)
	assert.Equal(t, 1, status.RecordsFailed)
	assert.Equal(t, 2, status.FilesProcessed)
}

func TestRunner_RunWithUpsertProcessor(t *testing.T) {
	dir := t.TempDir()
	writeActsSheet(t, filepath.Join(dir, "acts.xlsx"), [][]any{
		{"1", "Karnataka", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "10-50"},
	})

	repo := new(MockActRepository)
	repo.On("BulkUpsert", mock.Anything, mock.Anything).Return(1, nil)

	store := newMemStatusStore()
	runner := newTestRunner(t, ActsFamily(), dir, ActsProcessor(repo), store)

	status := runner.RunWith(context.Background(), ActsUpsertProcessor(repo))
	assert.Equal(t, domain.ImportCompleted, status.Status)
	assert.Equal(t, 1, status.RecordsProcessed)
	repo.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
}

func TestRunner_ProcessorErrorArchivesAsFailed(t *testing.T) {
	dir := t.TempDir()
	writeActsSheet(t, filepath.Join(dir, "acts.xlsx"), [][]any{
		{"1", "Karnataka", "Retail", "Private", "Labour", "Factories Act", "Shops Act", "10-50"},
	})

	store := newMemStatusStore()
	boom := func(ctx context.Context, sheet *Sheet) (int, error) {
		return 0, errors.New("db down")
	}
	runner := newTestRunner(t, ActsFamily(), dir, boom, store)

	status := runner.Run(context.Background())
	assert.Equal(t, domain.ImportCompleted, status.Status)
	assert.Equal(t, 1, status.RecordsFailed)

	failed, err := os.ReadDir(filepath.Join(dir, "failed"))
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}
