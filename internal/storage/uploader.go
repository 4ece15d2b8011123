// Package storage uploads files to the external object store and hands
// back the public URL persisted on document records.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// MaxUploadBytes caps profile images and documents at 1MB.
const MaxUploadBytes = 1 << 20

const (
	FolderDoctorProfiles = "doctor_profiles"
	FolderPrescriptions  = "prescriptions_images"
)

// Uploader is the object-storage seam, injected into handlers so tests can
// substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, folder, filename, contentType string, data []byte) (string, error)
}

// HTTPUploader posts a multipart form to the storage service's upload
// endpoint and expects a JSON body carrying the public URL.
type HTTPUploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPUploader(endpoint, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("folder", folder); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("X-Upload-Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}
	return result.URL, nil
}
