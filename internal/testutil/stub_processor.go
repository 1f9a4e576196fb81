package testutil

import (
	"context"
	"os"
	"sync"

	"github.com/mediayear/backend/internal/models"
)

// ProcessCall records one Process invocation.
type ProcessCall struct {
	Content   string
	MediaType models.MediaType
}

// StubProcessor answers Process with a canned result per media type.
// Files whose content equals FailContent fail.
type StubProcessor struct {
	mu    sync.Mutex
	calls []ProcessCall

	Results     map[models.MediaType]*models.AnalysisResult
	FailContent string
	Err         error
}

func (s *StubProcessor) Process(ctx context.Context, path string, mediaType models.MediaType) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, ProcessCall{Content: string(data), MediaType: mediaType})
	s.mu.Unlock()

	if s.FailContent != "" && string(data) == s.FailContent {
		return nil, s.Err
	}
	return s.Results[mediaType], nil
}

// Calls returns the recorded invocations.
func (s *StubProcessor) Calls() []ProcessCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProcessCall(nil), s.calls...)
}
