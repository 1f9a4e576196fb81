package uploadform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mediayear/backend/internal/preview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPSubmitter(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		endpoint string
		want     string
		wantErr  bool
	}{
		{name: "default endpoint", baseURL: "http://localhost:8089", want: "http://localhost:8089/upload"},
		{name: "custom endpoint", baseURL: "https://media.example.com/app/", endpoint: "api/upload", want: "https://media.example.com/app/api/upload"},
		{name: "absolute endpoint path", baseURL: "https://media.example.com/app/", endpoint: "/upload", want: "https://media.example.com/upload"},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "invalid url", baseURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewHTTPSubmitter(tt.baseURL, tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Endpoint())
		})
	}
}

func TestHTTPSubmitter_Submit(t *testing.T) {
	t.Run("posts multipart payload with programmatic marker", func(t *testing.T) {
		var (
			gotHeader string
			gotTitle  string
			gotFiles  []string
			gotTypes  []string
			gotBodies []string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/upload", r.URL.Path)
			gotHeader = r.Header.Get(RequestedWithHeader)

			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			gotTitle = r.FormValue("album")
			for _, fh := range r.MultipartForm.File["media"] {
				gotFiles = append(gotFiles, fh.Filename)
				gotTypes = append(gotTypes, fh.Header.Get("Content-Type"))
				f, err := fh.Open()
				if !assert.NoError(t, err) {
					return
				}
				data, _ := io.ReadAll(f)
				f.Close()
				gotBodies = append(gotBodies, string(data))
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true, "redirect": "/results"}`))
		}))
		defer srv.Close()

		s, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		payload := &Payload{
			Fields:    []Field{{Name: "album", Value: "summer"}},
			FileField: "media",
			Files: []preview.File{
				&fakeFile{name: "beach.jpg", mimeType: "image/jpeg", content: []byte("jpeg-bytes")},
				&fakeFile{name: `clip "1".mp4`, mimeType: "video/mp4", content: []byte("mp4-bytes")},
			},
		}

		var (
			mu       sync.Mutex
			lastSent int64
			total    int64
		)
		resp, err := s.Submit(context.Background(), payload, func(sent, tot int64) {
			mu.Lock()
			defer mu.Unlock()
			lastSent, total = sent, tot
		})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, "/results", resp.Redirect)
		assert.Equal(t, RequestedWithValue, gotHeader)
		assert.Equal(t, "summer", gotTitle)
		assert.Equal(t, []string{"beach.jpg", `clip "1".mp4`}, gotFiles)
		assert.Equal(t, []string{"image/jpeg", "video/mp4"}, gotTypes)
		assert.Equal(t, []string{"jpeg-bytes", "mp4-bytes"}, gotBodies)

		mu.Lock()
		defer mu.Unlock()
		assert.Positive(t, total)
		assert.Equal(t, total, lastSent)
	})

	t.Run("rejection is returned as a response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": false, "error": "No selected file"}`))
		}))
		defer srv.Close()

		s, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		resp, err := s.Submit(context.Background(), &Payload{}, nil)
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "No selected file", resp.Error)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			w.Write([]byte(`{"success": false, "error": "too big"}`))
		}))
		defer srv.Close()

		s, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), &Payload{}, nil)
		assert.Error(t, err)
	})

	t.Run("non-json body is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}))
		defer srv.Close()

		s, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), &Payload{}, nil)
		assert.Error(t, err)
	})

	t.Run("unreadable file aborts before sending", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		s, err := NewHTTPSubmitter(srv.URL, "")
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), &Payload{
			Files: []preview.File{&fakeFile{name: "gone.png", mimeType: "image/png", openErr: errUnreadable}},
		}, nil)
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestEncodePayload_DefaultsFileField(t *testing.T) {
	body, contentType, err := EncodePayload(&Payload{
		Files: []preview.File{&fakeFile{name: "x.bin", content: []byte("x")}},
	})
	require.NoError(t, err)
	assert.Contains(t, contentType, "multipart/form-data; boundary=")
	assert.Contains(t, body.String(), `name="media"; filename="x.bin"`)
	assert.Contains(t, body.String(), "Content-Type: application/octet-stream")
}
