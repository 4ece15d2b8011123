package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadReturnsURL(t *testing.T) {
	var gotFolder, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(MaxUploadBytes))
		gotFolder = r.FormValue("folder")
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"url":"https://cdn.example.com/prescriptions_images/scan.png"}`))
	}))
	defer srv.Close()

	up := NewHTTPUploader(srv.URL, "test-key")
	url, err := up.Upload(context.Background(), FolderPrescriptions, "scan.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/prescriptions_images/scan.png", url)
	assert.Equal(t, FolderPrescriptions, gotFolder)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	up := NewHTTPUploader(srv.URL, "test-key")
	_, err := up.Upload(context.Background(), FolderPrescriptions, "scan.png", "image/png", []byte("x"))
	assert.Error(t, err)
}

func TestUploadMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	up := NewHTTPUploader(srv.URL, "test-key")
	_, err := up.Upload(context.Background(), FolderPrescriptions, "scan.png", "image/png", []byte("x"))
	assert.Error(t, err)
}
