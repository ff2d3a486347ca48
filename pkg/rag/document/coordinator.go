package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/poll"
	"docchat-client/pkg/rag/classify"

	"golang.org/x/oauth2"
)

const module = "DocumentCoordinator"

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrIndexingFailed  = errors.New("document indexing failed")
)

// API is the slice of the backend the coordinator talks to.
type API interface {
	UploadDocuments(ctx context.Context, tok *oauth2.Token, files []backend.FileUpload) (*dto.UploadDocumentsResponse, error)
	ListDocuments(ctx context.Context, tok *oauth2.Token) (dto.DocumentStatusList, error)
	DeleteDocument(ctx context.Context, tok *oauth2.Token, id string) error
}

// TokenSource yields the current bearer token. auth.Context satisfies it.
type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// Coordinator drives one session's documents from staging through upload,
// indexing, selection and deletion.
type Coordinator struct {
	api       API
	tokens    TokenSource
	waiter    *poll.Waiter
	validator *Validator
	logger    logger.ILogger

	refs *registry

	mu        sync.Mutex
	staged    []backend.FileUpload
	uploading map[string]struct{}
}

func NewCoordinator(api API, tokens TokenSource, waiter *poll.Waiter, validator *Validator, log logger.ILogger) *Coordinator {
	return &Coordinator{
		api:       api,
		tokens:    tokens,
		waiter:    waiter,
		validator: validator,
		logger:    log,
		refs:      newRegistry(),
	}
}

// Stage validates files and queues the accepted ones for the next upload.
// Rejections are returned immediately and never reach the backend.
func (c *Coordinator) Stage(files []backend.FileUpload) ([]string, []Rejection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken := c.refs.filenames()
	for name := range c.pendingLocked() {
		taken[name] = struct{}{}
	}

	var accepted []string
	var rejections []Rejection
	for _, f := range files {
		resolved, rej := c.validator.Validate(f, taken)
		if rej != nil {
			rejections = append(rejections, *rej)
			continue
		}
		taken[resolved.Filename] = struct{}{}
		c.staged = append(c.staged, resolved)
		accepted = append(accepted, resolved.Filename)
	}
	return accepted, rejections
}

func (c *Coordinator) StagedFilenames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.staged))
	for _, f := range c.staged {
		names = append(names, f.Filename)
	}
	return names
}

func (c *Coordinator) ClearStaged() {
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
}

// takeStaged empties the staging area. The taken names stay reserved until
// Upload has registered them.
func (c *Coordinator) takeStaged() []backend.FileUpload {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := c.staged
	c.staged = nil
	c.uploading = make(map[string]struct{}, len(files))
	for _, f := range files {
		c.uploading[f.Filename] = struct{}{}
	}
	return files
}

func (c *Coordinator) releaseUploading() {
	c.mu.Lock()
	c.uploading = nil
	c.mu.Unlock()
}

// pendingLocked returns the names of files staged or in flight. c.mu must
// be held.
func (c *Coordinator) pendingLocked() map[string]struct{} {
	names := make(map[string]struct{}, len(c.staged)+len(c.uploading))
	for _, f := range c.staged {
		names[f.Filename] = struct{}{}
	}
	for name := range c.uploading {
		names[name] = struct{}{}
	}
	return names
}

// Upload sends every staged file as one batch and registers the returned
// ids. The staging area is consumed whatever the outcome. Any file without
// an id, or whose name is already registered under another id, fails the
// whole batch; ids that were registered are still returned.
func (c *Coordinator) Upload(ctx context.Context) ([]string, error) {
	files := c.takeStaged()
	if len(files) == 0 {
		return nil, nil
	}
	defer c.releaseUploading()

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	resp, err := c.api.UploadDocuments(ctx, tok, files)
	if err != nil {
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return nil, err
		}
		return nil, classify.New(classify.KindUploadFailed, err)
	}

	byName := make(map[string]struct{}, len(files))
	for _, f := range files {
		byName[f.Filename] = struct{}{}
	}

	var ids []string
	var failed []string
	for _, up := range resp.UploadedDocuments {
		delete(byName, up.Filename)
		if up.DocumentId == "" || up.Status == string(entity.ProcessingStatusFailed) {
			failed = append(failed, up.Filename)
			continue
		}
		status := entity.ProcessingStatus(up.Status)
		if status.Rank() < 0 {
			status = entity.ProcessingStatusProcessing
		}
		if !c.refs.upsert(entity.DocumentRef{Id: up.DocumentId, Filename: up.Filename, ProcessingStatus: status}) {
			failed = append(failed, up.Filename)
			continue
		}
		ids = append(ids, up.DocumentId)
	}
	for name := range byName {
		failed = append(failed, name)
	}

	if len(failed) > 0 {
		c.logger.Warn(module, "Upload batch incomplete", map[string]interface{}{
			"failed":   failed,
			"accepted": ids,
		})
		return ids, classify.New(classify.KindUploadFailed, fmt.Errorf("no document id for %v", failed))
	}

	c.logger.Info(module, "Documents uploaded", map[string]interface{}{
		"count": len(ids),
	})
	return ids, nil
}

// AwaitIndexing polls the status listing until every id is completed, one
// fails, or the waiter's deadline passes. Status-query errors other than 401
// are retried on the next tick.
func (c *Coordinator) AwaitIndexing(ctx context.Context, ids []string) (poll.Outcome, error) {
	if len(ids) == 0 {
		return poll.Ready, nil
	}

	check := func(ctx context.Context) (bool, error) {
		tok, err := c.tokens.Token()
		if err != nil {
			return false, err
		}

		rows, err := c.api.ListDocuments(ctx, tok)
		if err != nil {
			var httpErr *backend.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
				return false, err
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			c.logger.Warn(module, "Status query failed, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			return false, nil
		}

		c.applyStatuses(rows)

		ready := true
		for _, id := range ids {
			status, _ := c.refs.status(id)
			switch status {
			case entity.ProcessingStatusFailed:
				return false, classify.New(classify.KindUploadFailed, fmt.Errorf("%w: %s", ErrIndexingFailed, id))
			case entity.ProcessingStatusCompleted:
			default:
				ready = false
			}
		}
		return ready, nil
	}

	outcome, err := c.waiter.Wait(ctx, check)
	c.logger.Info(module, "Indexing wait finished", map[string]interface{}{
		"outcome": outcome.String(),
		"ids":     ids,
	})
	return outcome, err
}

func (c *Coordinator) applyStatuses(rows dto.DocumentStatusList) {
	for _, row := range rows {
		if row.Id == "" {
			continue
		}
		c.refs.advance(row.Id, entity.ProcessingStatus(row.ProcessingStatus))
	}
}

// Refresh syncs the registry with the backend listing, registering documents
// uploaded in earlier sessions. Rows named like a staged or in-flight file are
// skipped so the upload can register its own id.
func (c *Coordinator) Refresh(ctx context.Context) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return err
	}
	rows, err := c.api.ListDocuments(ctx, tok)
	if err != nil {
		return err
	}

	c.mu.Lock()
	pending := c.pendingLocked()
	c.mu.Unlock()

	for _, row := range rows {
		if row.Id == "" {
			continue
		}
		if _, ok := pending[row.Filename]; ok {
			c.logger.Debug(module, "Skipped document named like a pending upload", map[string]interface{}{
				"id":       row.Id,
				"filename": row.Filename,
			})
			continue
		}
		status := entity.ProcessingStatus(row.ProcessingStatus)
		if status.Rank() < 0 {
			status = entity.ProcessingStatusPending
		}
		if !c.refs.upsert(entity.DocumentRef{Id: row.Id, Filename: row.Filename, ProcessingStatus: status}) {
			c.logger.Debug(module, "Skipped document with duplicate filename", map[string]interface{}{
				"id":       row.Id,
				"filename": row.Filename,
			})
		}
	}
	return nil
}

func (c *Coordinator) Select(id string, selected bool) error {
	if !c.refs.setSelected(id, selected) {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return nil
}

// ResolveQueryIDs picks the ids a documents-mode question is scoped to:
// freshly uploaded ids first, then the user's selection, else none.
func (c *Coordinator) ResolveQueryIDs(fresh []string) []string {
	if len(fresh) > 0 {
		return append([]string(nil), fresh...)
	}
	return c.refs.selected()
}

// Delete removes a document remotely and then locally. The local ref is
// dropped even when the remote call fails; that error is returned so the
// caller can tell the user.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if _, ok := c.refs.status(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}

	var remoteErr error
	tok, err := c.tokens.Token()
	if err != nil {
		remoteErr = err
	} else {
		remoteErr = c.api.DeleteDocument(ctx, tok, id)
	}

	c.refs.remove(id)
	if remoteErr != nil {
		c.logger.Warn(module, "Remote delete failed, removed locally", map[string]interface{}{
			"id":    id,
			"error": remoteErr.Error(),
		})
		return remoteErr
	}
	return nil
}

func (c *Coordinator) Documents() []entity.DocumentRef {
	return c.refs.list()
}
