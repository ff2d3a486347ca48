package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"

	"golang.org/x/oauth2"
)

// FileUpload is one file in an upload batch.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client talks to the assistant backend. Every call takes the caller's token
// explicitly; the client holds no auth state.
type Client struct {
	BaseURL   string
	ProbePath string
	Client    *http.Client
}

func NewClient(baseURL, probePath string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ProbePath: probePath,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe is the lightweight authenticated call used to validate token
// freshness before a turn.
func (c *Client) Probe(ctx context.Context, tok *oauth2.Token) error {
	return c.doJSON(ctx, tok, http.MethodGet, c.ProbePath, nil, nil)
}

func (c *Client) UploadDocuments(ctx context.Context, tok *oauth2.Token, files []FileUpload) (*dto.UploadDocumentsResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Filename)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write multipart part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var out dto.UploadDocumentsResponse
	if err := c.do(ctx, tok, http.MethodPost, constant.BackendUploadDocumentsPath, writer.FormDataContentType(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context, tok *oauth2.Token) (dto.DocumentStatusList, error) {
	var out dto.DocumentStatusList
	if err := c.doJSON(ctx, tok, http.MethodGet, constant.BackendUserDocumentsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, tok *oauth2.Token, id string) error {
	return c.doJSON(ctx, tok, http.MethodDelete, constant.BackendDocumentPath+url.PathEscape(id), nil, nil)
}

// Chat sends one question as a multipart form. The documents field is only
// written when ids are present.
func (c *Client) Chat(ctx context.Context, tok *oauth2.Token, req dto.RAGChatRequest) (*dto.RAGChatResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"question", req.Question},
		{"context", req.Context},
		{"language", req.Language},
	}
	if len(req.Documents) > 0 {
		ids, err := json.Marshal(req.Documents)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document ids: %w", err)
		}
		fields = append(fields, [2]string{"documents", string(ids)})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var out dto.RAGChatResponse
	if err := c.do(ctx, tok, http.MethodPost, constant.BackendRAGChatPath, writer.FormDataContentType(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveSession(ctx context.Context, tok *oauth2.Token, req dto.SaveSessionRequest) (*dto.SaveSessionResponse, error) {
	var out dto.SaveSessionResponse
	if err := c.doJSON(ctx, tok, http.MethodPost, constant.BackendSaveSessionPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSessions(ctx context.Context, tok *oauth2.Token) ([]dto.SessionSummaryDTO, error) {
	var out dto.SessionListResponse
	if err := c.doJSON(ctx, tok, http.MethodGet, constant.BackendSessionsPath, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) GetSession(ctx context.Context, tok *oauth2.Token, id string) (*dto.SessionDetailDTO, error) {
	var out dto.SessionDetailDTO
	if err := c.doJSON(ctx, tok, http.MethodGet, constant.BackendSessionPath+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, tok *oauth2.Token, id string) error {
	return c.doJSON(ctx, tok, http.MethodDelete, constant.BackendSessionPath+url.PathEscape(id), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, tok *oauth2.Token, method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(ctx, tok, method, path, "", nil, out)
	}
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, tok, method, path, "application/json", bytes.NewReader(jsonData), out)
}

func (c *Client) do(ctx context.Context, tok *oauth2.Token, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp.StatusCode, bodyBytes)
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
