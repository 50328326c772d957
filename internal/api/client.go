// Package api uploads exported recordings to a recording server.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rorsim/gfxbridge/pkg/core"
)

const (
	healthPath    = "/healthcheck"
	recordingPath = "/api/v1/recordings"
	maxErrorBody  = 512
)

// ErrUnauthorized matches a StatusError for a rejected upload secret.
var ErrUnauthorized = errors.New("recording server rejected the secret")

// StatusError is a non-200 reply of the recording server.
type StatusError struct {
	Op      string
	Code    int
	Message string // start of the response body
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with its 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the recording server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for baseURL. The apiKey is sent as the upload secret.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Healthcheck checks if the recording server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create healthcheck request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus("healthcheck", resp)
}

// Upload streams a session export as a multipart form. The metadata fields
// precede the file; the file's SHA-256 and size follow it so the server can
// verify what it stored.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	name := filepath.Base(filePath)

	done := make(chan error, 1)
	go func() {
		err := writeForm(form, file, name, c.apiKey, meta)
		if cerr := form.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
		done <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recordingPath, pr)
	if err != nil {
		pr.Close()
		<-done
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		<-done
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("upload", resp); err != nil {
		pr.Close()
		<-done
		return err
	}
	return <-done
}

func writeForm(form *multipart.Writer, file io.Reader, name, secret string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", secret},
		{"filename", name},
		{"sessionId", meta.SessionID},
		{"sessionName", meta.SessionName},
		{"duration", strconv.FormatFloat(meta.Duration, 'f', 3, 64)},
		{"actorCount", strconv.Itoa(meta.ActorCount)},
		{"tag", meta.Tag},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType(name))
	part, err := form.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	sum := sha256.New()
	n, err := io.Copy(part, io.TeeReader(file, sum))
	if err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := form.WriteField("sha256", hex.EncodeToString(sum.Sum(nil))); err != nil {
		return fmt.Errorf("failed to write field sha256: %w", err)
	}
	if err := form.WriteField("size", strconv.FormatInt(n, 10)); err != nil {
		return fmt.Errorf("failed to write field size: %w", err)
	}
	return nil
}

// contentType maps the memory backend's export names to a MIME type.
func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	}
	return "application/octet-stream"
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
