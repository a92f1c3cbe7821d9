// Package apiclient implements C2, the signed HTTP client every request to
// the project server goes through: JWT-signed GET/POST calls with JSON or
// binary bodies, and classified errors. Grounded on the teacher's
// client.Client (online/offline tracking), generalised from a static
// bearer token to a per-request signed payload. Per spec.md §7's
// never-retry-silently rule, C2 makes exactly one attempt per call; it
// marks transient failures as retryable (internal/retry.RetryableError)
// so a caller that wants retries can apply them explicitly around a whole
// Sync, rather than C2 looping on its own.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/devkat/CodeExpertDesktop/internal/retry"
	"github.com/devkat/CodeExpertDesktop/pkg/model"
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	Signer         Signer
	Timeout        time.Duration // per-call timeout for JSON requests
	ArchiveTimeout time.Duration // per-call timeout for the upload endpoint
}

// Client is the signed HTTP client used by the sync orchestrator (C7) to
// reach the project server.
type Client struct {
	baseURL       string
	signer        Signer
	httpClient    *http.Client
	archiveClient *http.Client

	mu     sync.RWMutex
	online bool
}

// New builds a Client. BaseURL is required; everything else has a usable
// default.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ArchiveTimeout == 0 {
		cfg.ArchiveTimeout = 5 * time.Minute
	}

	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		signer:        cfg.Signer,
		httpClient:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		archiveClient: &http.Client{Timeout: cfg.ArchiveTimeout, Transport: transport},
		online:        true,
	}
}

// IsOnline reports the result of the most recent request: a transport
// failure or a 5xx reply marks the client offline, any other reply marks
// it online.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	c.online = online
	c.mu.Unlock()
}

// ProjectInfoResponse is the server's authoritative inventory for a
// project, returned by both GET .../info and POST .../files.
type ProjectInfoResponse struct {
	ID    model.ProjectID        `json:"_id"`
	Files []model.RemoteFileInfo `json:"files"`
}

type requestSpec struct {
	method          string
	path            string
	signed          bool
	jwtPayload      map[string]any
	body            io.Reader
	bodyLen         int64
	contentType     string
	contentEncoding string
	archive         bool // use the long-timeout client
}

// doJSON issues one signed HTTP call and decodes its JSON response. C2
// performs no retries of its own — spec.md §7's never-retry-silently rule —
// so a single failed attempt here is a single failed call; errors are
// still marked retryable (via internal/retry's RetryableError) so a caller
// that explicitly wants retries can decide to retry on that basis.
func (c *Client) doJSON(ctx context.Context, spec requestSpec, out any) error {
	resp, err := c.send(ctx, spec)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return clientError(resp.StatusCode, fmt.Sprintf("decode response: %s", err))
	}
	return nil
}

// send issues one HTTP attempt, signing, dispatching, and classifying the
// result. It never retries.
func (c *Client) send(ctx context.Context, spec requestSpec) (*http.Response, error) {
	url := c.baseURL + "/" + strings.TrimPrefix(spec.path, "/")

	req, err := http.NewRequestWithContext(ctx, spec.method, url, spec.body)
	if err != nil {
		return nil, clientError(0, err.Error())
	}
	if spec.bodyLen > 0 {
		req.ContentLength = spec.bodyLen
	}
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	if spec.contentEncoding != "" {
		req.Header.Set("Content-Encoding", spec.contentEncoding)
	}

	if spec.signed {
		if c.signer == nil {
			return nil, notReady()
		}
		token, err := c.signer.Sign(spec.jwtPayload)
		if err != nil {
			if ae, ok := AsError(err); ok {
				return nil, ae
			}
			return nil, notReady()
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.httpClient
	if spec.archive {
		client = c.archiveClient
	}

	resp, err := client.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, retry.Retryable(noNetwork(err))
	}

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.setOnline(false)
		return nil, retry.Retryable(serverError(resp.StatusCode, string(body)))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.setOnline(true) // server answered, just rejected the request
		return nil, clientError(resp.StatusCode, string(body))
	}

	c.setOnline(true)
	return resp, nil
}

// ProjectInfo fetches the authoritative remote inventory for a project.
func (c *Client) ProjectInfo(ctx context.Context, id model.ProjectID) (*ProjectInfoResponse, error) {
	var out ProjectInfoResponse
	err := c.doJSON(ctx, requestSpec{
		method:     http.MethodGet,
		path:       fmt.Sprintf("project/%s/info", id),
		signed:     true,
		jwtPayload: map[string]any{},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchFile downloads one file's content as text. Like doJSON, this is a
// single attempt; C2 never retries on its own.
func (c *Client) FetchFile(ctx context.Context, id model.ProjectID, path string) (string, error) {
	resp, err := c.send(ctx, requestSpec{
		method:     http.MethodGet,
		path:       fmt.Sprintf("project/%s/file", id),
		signed:     true,
		jwtPayload: map[string]any{"path": path},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", clientError(resp.StatusCode, fmt.Sprintf("read body: %s", err))
	}
	return string(body), nil
}

// UploadFiles posts a brotli-compressed tar archive (or none, if there is
// nothing to upload) plus a list of paths to remove. archivePath and
// tarHash are both empty when there is nothing to upload — spec.md's
// {removeFiles} payload variant. The archive is read into memory and sent
// exactly once per call; a caller that retries a failed upload calls
// UploadFiles again so the body is read fresh from archivePath rather than
// replaying a partially consumed reader.
func (c *Client) UploadFiles(ctx context.Context, id model.ProjectID, archivePath, tarHash string, removeFiles []string) (*ProjectInfoResponse, error) {
	payload := map[string]any{"removeFiles": removeFiles}

	var body io.Reader
	var bodyLen int64
	var contentType, contentEncoding string

	if archivePath != "" {
		data, err := readFile(archivePath)
		if err != nil {
			return nil, clientError(0, err.Error())
		}
		payload["tarHash"] = tarHash
		body = bytes.NewReader(data)
		bodyLen = int64(len(data))
		contentType = "application/x-tar"
		contentEncoding = "br"
	}

	var out ProjectInfoResponse
	err := c.doJSON(ctx, requestSpec{
		method:          http.MethodPost,
		path:            fmt.Sprintf("project/%s/files", id),
		signed:          true,
		jwtPayload:      payload,
		body:            body,
		bodyLen:         bodyLen,
		contentType:     contentType,
		contentEncoding: contentEncoding,
		archive:         true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAccessResponse is the server's verdict on the current client's
// credentials.
type CheckAccessResponse struct {
	Status string `json:"status"`
}

// CheckAccess verifies the client's signing key is still recognised.
func (c *Client) CheckAccess(ctx context.Context) (string, error) {
	var out CheckAccessResponse
	err := c.doJSON(ctx, requestSpec{
		method:     http.MethodGet,
		path:       "app/checkAccess",
		signed:     true,
		jwtPayload: map[string]any{},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Status, nil
}

// RegisterRequest describes this client to the server on first run.
type RegisterRequest struct {
	OS          string   `json:"os"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Token       string   `json:"token"`
	Permissions []string `json:"permissions"`
}

type registerResponse struct {
	ClientID string `json:"clientId"`
}

// Register exchanges a one-time enrolment token for a durable client ID.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	payload := map[string]any{
		"os": req.OS, "name": req.Name, "version": req.Version,
		"token": req.Token, "permissions": req.Permissions,
	}
	var out registerResponse
	err := c.doJSON(ctx, requestSpec{
		method:     http.MethodPost,
		path:       "app/register",
		signed:     true,
		jwtPayload: payload,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ClientID, nil
}

type clientIDResponse struct {
	Token string `json:"token"`
}

// FetchClientID retrieves the unsigned, one-time enrolment token.
func (c *Client) FetchClientID(ctx context.Context) (string, error) {
	var out clientIDResponse
	err := c.doJSON(ctx, requestSpec{
		method: http.MethodGet,
		path:   "app/clientId",
		signed: false,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
