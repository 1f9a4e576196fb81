package uploadform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/preview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresDependencies(t *testing.T) {
	h := newHarness()

	deps := h.deps(&stubSubmitter{})
	deps.Grid = nil
	_, err := New(deps)
	assert.Error(t, err)

	deps = h.deps(nil)
	_, err = New(deps)
	assert.Error(t, err)

	_, err = New(h.deps(&stubSubmitter{}))
	assert.NoError(t, err)
}

func TestController_HandleSelectionChange(t *testing.T) {
	t.Run("images render one card per readable file", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{}))
		require.NoError(t, err)

		files := []preview.File{
			&fakeFile{name: "a.png", mimeType: "image/png", content: []byte("a")},
			&fakeFile{name: "b.jpg", mimeType: "image/jpeg", content: []byte("b")},
			&fakeFile{name: "broken.gif", mimeType: "image/gif", openErr: errUnreadable},
		}

		c.HandleSelectionChange(context.Background(), files)
		c.Wait()

		assert.ElementsMatch(t, []string{"a.png", "b.jpg"}, h.grid.names())
		for _, card := range h.grid.snapshot() {
			assert.Equal(t, preview.KindImage, card.Kind)
			assert.Contains(t, card.DataURL, "data:image/")
		}
		assert.Empty(t, h.alerter.messages)
	})

	t.Run("videos render placeholders synchronously", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{}))
		require.NoError(t, err)

		files := []preview.File{
			&fakeFile{name: "clip1.mp4", mimeType: "video/mp4"},
			&fakeFile{name: "clip2.mov", mimeType: "video/quicktime"},
		}

		c.HandleSelectionChange(context.Background(), files)

		// No Wait: placeholders must already be there.
		cards := h.grid.snapshot()
		require.Len(t, cards, 2)
		assert.Equal(t, "clip1.mp4", cards[0].Name)
		assert.Equal(t, "clip2.mov", cards[1].Name)
		for _, card := range cards {
			assert.Equal(t, preview.KindVideo, card.Kind)
			assert.Equal(t, preview.VideoIcon, card.Icon)
		}
		assert.Equal(t, 2, h.icons.calls)
	})

	t.Run("unsupported types are skipped silently", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{}))
		require.NoError(t, err)

		files := []preview.File{
			&fakeFile{name: "notes.txt", mimeType: "text/plain"},
			&fakeFile{name: "clip.mp4", mimeType: "video/mp4"},
			&fakeFile{name: "unknown", mimeType: ""},
		}

		c.HandleSelectionChange(context.Background(), files)
		c.Wait()

		assert.Equal(t, []string{"clip.mp4"}, h.grid.names())
		assert.Empty(t, h.alerter.messages)
	})

	t.Run("empty selection clears the grid", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{}))
		require.NoError(t, err)

		c.HandleSelectionChange(context.Background(), []preview.File{&fakeFile{name: "v.mp4", mimeType: "video/mp4"}})
		c.HandleSelectionChange(context.Background(), nil)
		c.Wait()

		assert.Empty(t, h.grid.names())
		assert.Equal(t, 2, h.grid.clears)
	})

	t.Run("image cards follow read completion order", func(t *testing.T) {
		h := newHarness()
		gates := map[string]chan struct{}{
			"first.png":  make(chan struct{}),
			"second.png": make(chan struct{}),
		}
		reader := func(f preview.File) (string, error) {
			<-gates[f.Name()]
			return "data:image/png;base64,", nil
		}
		c, err := New(h.deps(&stubSubmitter{}), WithFileReader(reader))
		require.NoError(t, err)

		c.HandleSelectionChange(context.Background(), []preview.File{
			&fakeFile{name: "first.png", mimeType: "image/png"},
			&fakeFile{name: "second.png", mimeType: "image/png"},
		})

		close(gates["second.png"])
		assert.Eventually(t, func() bool { return len(h.grid.names()) == 1 }, time.Second, 5*time.Millisecond)
		close(gates["first.png"])
		c.Wait()

		assert.Equal(t, []string{"second.png", "first.png"}, h.grid.names())
	})

	t.Run("reads from a previous selection never reach the grid", func(t *testing.T) {
		h := newHarness()
		gate := make(chan struct{})
		reader := func(f preview.File) (string, error) {
			if f.Name() == "old.png" {
				<-gate
			}
			return "data:image/png;base64,", nil
		}
		c, err := New(h.deps(&stubSubmitter{}), WithFileReader(reader))
		require.NoError(t, err)

		c.HandleSelectionChange(context.Background(), []preview.File{
			&fakeFile{name: "old.png", mimeType: "image/png"},
		})
		c.mu.Lock()
		stale := c.pending
		c.mu.Unlock()

		c.HandleSelectionChange(context.Background(), []preview.File{
			&fakeFile{name: "new.mp4", mimeType: "video/mp4"},
			&fakeFile{name: "new.png", mimeType: "image/png"},
		})

		close(gate)
		stale.Wait()
		c.Wait()

		assert.ElementsMatch(t, []string{"new.mp4", "new.png"}, h.grid.names())
	})

	t.Run("cancelled context drops pending reads", func(t *testing.T) {
		h := newHarness()
		gate := make(chan struct{})
		reader := func(f preview.File) (string, error) {
			<-gate
			return "data:image/png;base64,", nil
		}
		c, err := New(h.deps(&stubSubmitter{}), WithFileReader(reader))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		c.HandleSelectionChange(ctx, []preview.File{&fakeFile{name: "a.png", mimeType: "image/png"}})
		cancel()
		close(gate)
		c.Wait()

		assert.Empty(t, h.grid.names())
	})
}

func assertProgressReset(t *testing.T, h *harness) {
	t.Helper()
	h.progress.mu.Lock()
	defer h.progress.mu.Unlock()

	assert.False(t, h.progress.visible, "progress indicator should be hidden")
	assert.Equal(t, float64(0), h.progress.fill, "progress fill should be reset")
	require.GreaterOrEqual(t, len(h.progress.events), 2)
	assert.Equal(t, []string{"hide", "fill"}, h.progress.events[len(h.progress.events)-2:])

	h.form.mu.Lock()
	defer h.form.mu.Unlock()
	require.NotEmpty(t, h.form.enabled)
	assert.False(t, h.form.enabled[0], "submit control should be disabled first")
	assert.True(t, h.form.enabled[len(h.form.enabled)-1], "submit control should be enabled again")
}

func TestController_HandleSubmit(t *testing.T) {
	t.Run("success navigates to the redirect", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{resp: models.UploadSucceeded("/gallery")}))
		require.NoError(t, err)

		err = c.HandleSubmit(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"/gallery"}, h.navigator.urls)
		assert.Empty(t, h.alerter.messages)
		assert.Equal(t, "show", h.progress.events[0])
		assert.Contains(t, h.progress.fills, float64(100))
		assertProgressReset(t, h)
	})

	t.Run("rejection alerts the server message", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{resp: models.UploadFailed("File too large")}))
		require.NoError(t, err)

		err = c.HandleSubmit(context.Background())

		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "File too large", rejected.Message)
		require.Len(t, h.alerter.messages, 1)
		assert.Contains(t, h.alerter.messages[0], "File too large")
		assert.Empty(t, h.navigator.urls)
		assertProgressReset(t, h)
	})

	t.Run("rejection without a message falls back to the generic alert", func(t *testing.T) {
		h := newHarness()
		c, err := New(h.deps(&stubSubmitter{resp: &models.SubmissionResponse{Success: false}}))
		require.NoError(t, err)

		assert.Error(t, c.HandleSubmit(context.Background()))
		assert.Equal(t, []string{GenericFailureMessage}, h.alerter.messages)
		assertProgressReset(t, h)
	})

	t.Run("network failure alerts the generic message", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		baseURL := srv.URL
		srv.Close()

		submitter, err := NewHTTPSubmitter(baseURL, "")
		require.NoError(t, err)

		h := newHarness()
		c, err := New(h.deps(submitter))
		require.NoError(t, err)

		assert.Error(t, c.HandleSubmit(context.Background()))
		assert.Equal(t, []string{GenericFailureMessage}, h.alerter.messages)
		assert.Empty(t, h.navigator.urls)
		assertProgressReset(t, h)
	})

	t.Run("malformed response alerts the generic message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true}`))
		}))
		defer srv.Close()

		submitter, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		h := newHarness()
		c, err := New(h.deps(submitter))
		require.NoError(t, err)

		err = c.HandleSubmit(context.Background())
		assert.True(t, errors.Is(err, models.ErrMalformedResponse))
		assert.Equal(t, []string{GenericFailureMessage}, h.alerter.messages)
		assert.Empty(t, h.navigator.urls)
		assertProgressReset(t, h)
	})

	t.Run("payload failure alerts the generic message", func(t *testing.T) {
		h := newHarness()
		h.form.payloadErr = errors.New("input detached")
		c, err := New(h.deps(&stubSubmitter{resp: models.UploadSucceeded("/results")}))
		require.NoError(t, err)

		assert.Error(t, c.HandleSubmit(context.Background()))
		assert.Equal(t, []string{GenericFailureMessage}, h.alerter.messages)
		assert.Empty(t, h.navigator.urls)
		assertProgressReset(t, h)
	})

	t.Run("overlapping submissions are rejected", func(t *testing.T) {
		h := newHarness()
		stub := &stubSubmitter{
			resp:    models.UploadSucceeded("/results"),
			started: make(chan struct{}),
			release: make(chan struct{}),
		}
		c, err := New(h.deps(stub))
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- c.HandleSubmit(context.Background()) }()

		<-stub.started
		assert.ErrorIs(t, c.HandleSubmit(context.Background()), ErrSubmitInFlight)

		close(stub.release)
		require.NoError(t, <-done)

		assert.Equal(t, []string{"/results"}, h.navigator.urls)
		assert.Empty(t, h.alerter.messages)
		assertProgressReset(t, h)

		// A new submission is accepted once the first one settled.
		stub.started = nil
		stub.release = nil
		require.NoError(t, c.HandleSubmit(context.Background()))
	})
}
