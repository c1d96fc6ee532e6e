package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/gemchat/internal/presenter"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["prompt"])

		w.Write([]byte(`{"output":"Good day"}`))
	}))
	defer srv.Close()

	reply, err := New(srv.URL+"/").Chat(t.Context(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Good day", reply.Output)
	assert.Empty(t, reply.FileURL)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "png-bytes", string(data))
		assert.Equal(t, "What is it?", r.FormValue("prompt"))

		w.Write([]byte(`{"output":"A cat","fileUrl":"/uploads/file-1-2.png","filename":"file-1-2.png"}`))
	}))
	defer srv.Close()

	reply, err := New(srv.URL).Upload(t.Context(), "What is it?", presenter.UploadedFile{
		Name:     "cat.png",
		MIMEType: "image/png",
		Data:     []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, &presenter.Reply{Output: "A cat", FileURL: "/uploads/file-1-2.png", Filename: "file-1-2.png"}, reply)
}

func TestUploadWithoutPromptOmitsField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, ok := r.MultipartForm.Value["prompt"]
		assert.False(t, ok)
		w.Write([]byte(`{"output":"x"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Upload(t.Context(), "", presenter.UploadedFile{Name: "a.jpg", Data: []byte("x")})
	require.NoError(t, err)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"No message provided!"}`, "No message provided!"},
		{"server error", http.StatusInternalServerError, `{"error":"Gemini API Error: quota"}`, "Gemini API Error: quota"},
		{"no json body", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Chat(t.Context(), "Hi")
			var herr *presenter.HTTPError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tt.status, herr.Status)
			assert.Equal(t, tt.wantMsg, herr.Message)
		})
	}
}

func TestInvalidJSONIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(t.Context(), "Hi")
	require.Error(t, err)
	var herr *presenter.HTTPError
	assert.False(t, errors.As(err, &herr))
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Chat(t.Context(), "Hi")
	require.Error(t, err)
}

var _ presenter.Backend = (*Client)(nil)
