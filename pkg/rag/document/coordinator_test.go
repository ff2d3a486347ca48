package document

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/poll"
	"docchat-client/pkg/rag/classify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticTokens struct {
	err error
}

func (s staticTokens) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "t", TokenType: "Bearer"}, nil
}

type fakeAPI struct {
	mu         sync.Mutex
	upload     func(files []backend.FileUpload) (*dto.UploadDocumentsResponse, error)
	listing    []dto.DocumentStatusList
	listErrs   []error
	listCalls  int
	deleteErr  error
	deletedIDs []string
}

func (f *fakeAPI) UploadDocuments(_ context.Context, _ *oauth2.Token, files []backend.FileUpload) (*dto.UploadDocumentsResponse, error) {
	return f.upload(files)
}

// ListDocuments returns scripted responses in order, repeating the last one.
func (f *fakeAPI) ListDocuments(_ context.Context, _ *oauth2.Token) (dto.DocumentStatusList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.listCalls
	f.listCalls++
	if i < len(f.listErrs) && f.listErrs[i] != nil {
		return nil, f.listErrs[i]
	}
	if len(f.listing) == 0 {
		return nil, nil
	}
	if i >= len(f.listing) {
		i = len(f.listing) - 1
	}
	return f.listing[i], nil
}

func (f *fakeAPI) DeleteDocument(_ context.Context, _ *oauth2.Token, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return f.deleteErr
}

func acceptAll(files []backend.FileUpload) (*dto.UploadDocumentsResponse, error) {
	resp := &dto.UploadDocumentsResponse{}
	for i, f := range files {
		resp.UploadedDocuments = append(resp.UploadedDocuments, dto.UploadedDocumentDTO{
			DocumentId: "d" + string(rune('1'+i)),
			Filename:   f.Filename,
			Status:     "processing",
		})
	}
	return resp, nil
}

func newTestCoordinator(api *fakeAPI, clock *poll.FakeClock) *Coordinator {
	waiter := poll.NewWaiter(2*time.Second, 30*time.Second, clock)
	return NewCoordinator(api, staticTokens{}, waiter, NewValidator(10*1024*1024), logger.NewNopLogger())
}

func pdf(name string) backend.FileUpload {
	return backend.FileUpload{Filename: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
}

func rows(status string, ids ...string) dto.DocumentStatusList {
	var out dto.DocumentStatusList
	for _, id := range ids {
		out = append(out, dto.DocumentStatusDTO{Id: id, ProcessingStatus: status})
	}
	return out
}

func TestStageRejectsDisallowedFiles(t *testing.T) {
	c := newTestCoordinator(&fakeAPI{upload: acceptAll}, poll.NewFakeClock(time.Now()))

	big := backend.FileUpload{Filename: "big.pdf", ContentType: "application/pdf", Data: make([]byte, 10*1024*1024+1)}
	img := backend.FileUpload{Filename: "cat.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	staged, rejections := c.Stage([]backend.FileUpload{pdf("a.pdf"), img, big, pdf("a.pdf")})

	assert.Equal(t, []string{"a.pdf"}, staged)
	require.Len(t, rejections, 3)
	assert.Equal(t, RejectType, rejections[0].Reason)
	assert.Equal(t, RejectSize, rejections[1].Reason)
	assert.Equal(t, RejectDuplicate, rejections[2].Reason)
	assert.Contains(t, rejections[1].Message, "10MB")
}

func TestStageSniffsUndeclaredType(t *testing.T) {
	c := newTestCoordinator(&fakeAPI{upload: acceptAll}, poll.NewFakeClock(time.Now()))

	notes := backend.FileUpload{Filename: "notes.txt", ContentType: "application/octet-stream", Data: []byte("plain text notes\n")}
	staged, rejections := c.Stage([]backend.FileUpload{notes})

	assert.Empty(t, rejections)
	assert.Equal(t, []string{"notes.txt"}, staged)
}

func TestStageRejectsNameOfKnownDocument(t *testing.T) {
	api := &fakeAPI{upload: acceptAll}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	_, err := c.Upload(ctx)
	require.NoError(t, err)

	_, rejections := c.Stage([]backend.FileUpload{pdf("a.pdf")})
	require.Len(t, rejections, 1)
	assert.Equal(t, RejectDuplicate, rejections[0].Reason)
}

func TestUploadRegistersIdsAndClearsStaging(t *testing.T) {
	api := &fakeAPI{upload: acceptAll}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))

	c.Stage([]backend.FileUpload{pdf("a.pdf"), pdf("b.pdf")})
	ids, err := c.Upload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)
	assert.Empty(t, c.StagedFilenames())
	docs := c.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, entity.ProcessingStatusProcessing, docs[0].ProcessingStatus)
}

func TestUploadMissingIdFailsBatch(t *testing.T) {
	api := &fakeAPI{upload: func(files []backend.FileUpload) (*dto.UploadDocumentsResponse, error) {
		return &dto.UploadDocumentsResponse{UploadedDocuments: []dto.UploadedDocumentDTO{
			{DocumentId: "d1", Filename: "a.pdf", Status: "processing"},
			{Filename: "b.pdf", Status: "failed", Error: "corrupt"},
		}}, nil
	}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))

	c.Stage([]backend.FileUpload{pdf("a.pdf"), pdf("b.pdf")})
	ids, err := c.Upload(context.Background())

	assert.Equal(t, classify.KindUploadFailed, classify.KindOf(err))
	assert.Equal(t, []string{"d1"}, ids)
	assert.Len(t, c.Documents(), 1)
}

func TestUploadUnauthorizedIsNotUploadFailed(t *testing.T) {
	api := &fakeAPI{upload: func([]backend.FileUpload) (*dto.UploadDocumentsResponse, error) {
		return nil, &backend.HTTPError{StatusCode: http.StatusUnauthorized}
	}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	_, err := c.Upload(context.Background())

	var httpErr *backend.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, classify.Kind(0), classify.KindOf(err))
}

func TestUploadNothingStaged(t *testing.T) {
	c := newTestCoordinator(&fakeAPI{}, poll.NewFakeClock(time.Now()))
	ids, err := c.Upload(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, ids)
}

func TestAwaitIndexingReady(t *testing.T) {
	api := &fakeAPI{
		upload: acceptAll,
		listing: []dto.DocumentStatusList{
			rows("processing", "d1"),
			rows("processing", "d1"),
			rows("completed", "d1"),
		},
	}
	clock := poll.NewFakeClock(time.Now())
	c := newTestCoordinator(api, clock)
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	ids, err := c.Upload(ctx)
	require.NoError(t, err)

	outcome, err := c.AwaitIndexing(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, outcome)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.Sleeps())
	assert.Equal(t, entity.ProcessingStatusCompleted, c.Documents()[0].ProcessingStatus)
}

func TestAwaitIndexingTimesOutAfterDeadline(t *testing.T) {
	api := &fakeAPI{upload: acceptAll, listing: []dto.DocumentStatusList{rows("processing", "d1")}}
	clock := poll.NewFakeClock(time.Now())
	c := newTestCoordinator(api, clock)
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	ids, _ := c.Upload(ctx)

	outcome, err := c.AwaitIndexing(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, poll.TimedOut, outcome)

	var total time.Duration
	for _, d := range clock.Sleeps() {
		total += d
	}
	assert.Equal(t, 30*time.Second, total)
	assert.Equal(t, 16, api.listCalls)
}

func TestAwaitIndexingFailedStatus(t *testing.T) {
	api := &fakeAPI{upload: acceptAll, listing: []dto.DocumentStatusList{
		rows("processing", "d1", "d2"),
		append(rows("completed", "d1"), rows("failed", "d2")...),
	}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf"), pdf("b.pdf")})
	ids, _ := c.Upload(ctx)

	outcome, err := c.AwaitIndexing(ctx, ids)
	assert.Equal(t, poll.Failed, outcome)
	assert.ErrorIs(t, err, ErrIndexingFailed)
	assert.Equal(t, classify.KindUploadFailed, classify.KindOf(err))
}

func TestAwaitIndexingRetriesTransientErrors(t *testing.T) {
	api := &fakeAPI{
		upload:   acceptAll,
		listErrs: []error{errors.New("connection reset"), &backend.HTTPError{StatusCode: 503}},
		listing:  []dto.DocumentStatusList{nil, nil, rows("completed", "d1")},
	}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	ids, _ := c.Upload(ctx)

	outcome, err := c.AwaitIndexing(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, outcome)
	assert.Equal(t, 3, api.listCalls)
}

func TestAwaitIndexingUnauthorizedFails(t *testing.T) {
	api := &fakeAPI{upload: acceptAll, listErrs: []error{&backend.HTTPError{StatusCode: http.StatusUnauthorized}}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	ids, _ := c.Upload(ctx)

	outcome, err := c.AwaitIndexing(ctx, ids)
	assert.Equal(t, poll.Failed, outcome)
	var httpErr *backend.HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestStatusNeverRegresses(t *testing.T) {
	api := &fakeAPI{upload: acceptAll, listing: []dto.DocumentStatusList{
		rows("completed", "d1"),
	}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	ids, _ := c.Upload(ctx)
	_, err := c.AwaitIndexing(ctx, ids)
	require.NoError(t, err)

	api.listing = []dto.DocumentStatusList{rows("pending", "d1")}
	require.NoError(t, c.Refresh(ctx))
	c.applyStatuses(rows("processing", "d1"))

	assert.Equal(t, entity.ProcessingStatusCompleted, c.Documents()[0].ProcessingStatus)
}

func TestResolveQueryIDsPriority(t *testing.T) {
	api := &fakeAPI{upload: acceptAll}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	assert.Nil(t, c.ResolveQueryIDs(nil))

	c.Stage([]backend.FileUpload{pdf("a.pdf"), pdf("b.pdf")})
	_, err := c.Upload(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Select("d2", true))

	assert.Equal(t, []string{"d2"}, c.ResolveQueryIDs(nil))
	assert.Equal(t, []string{"fresh"}, c.ResolveQueryIDs([]string{"fresh"}))
}

func TestSelectUnknownDocument(t *testing.T) {
	c := newTestCoordinator(&fakeAPI{}, poll.NewFakeClock(time.Now()))
	assert.ErrorIs(t, c.Select("nope", true), ErrUnknownDocument)
}

func TestDeleteRemovesLocallyEvenWhenRemoteFails(t *testing.T) {
	api := &fakeAPI{upload: acceptAll, deleteErr: &backend.HTTPError{StatusCode: 500}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("a.pdf")})
	_, err := c.Upload(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Select("d1", true))

	err = c.Delete(ctx, "d1")

	assert.Error(t, err)
	assert.Empty(t, c.Documents())
	assert.Empty(t, c.ResolveQueryIDs(nil))
	assert.Equal(t, []string{"d1"}, api.deletedIDs)
}

func TestDeleteUnknownDocument(t *testing.T) {
	api := &fakeAPI{}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	assert.ErrorIs(t, c.Delete(context.Background(), "nope"), ErrUnknownDocument)
	assert.Empty(t, api.deletedIDs)
}

func TestRefreshRegistersRemoteDocuments(t *testing.T) {
	api := &fakeAPI{listing: []dto.DocumentStatusList{{
		{Id: "r1", Filename: "old.pdf", ProcessingStatus: "completed"},
		{Id: "r2", Filename: "old.pdf", ProcessingStatus: "completed"},
		{Id: "r3", Filename: "new.txt", ProcessingStatus: "weird"},
	}}}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))

	require.NoError(t, c.Refresh(context.Background()))

	docs := c.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "r1", docs[0].Id)
	assert.Equal(t, entity.ProcessingStatusPending, docs[1].ProcessingStatus)
}

func TestRefreshSkipsNameOfStagedFile(t *testing.T) {
	api := &fakeAPI{
		upload: acceptAll,
		listing: []dto.DocumentStatusList{
			{{Id: "old1", Filename: "policy.pdf", ProcessingStatus: "completed"}},
			{
				{Id: "old1", Filename: "policy.pdf", ProcessingStatus: "completed"},
				{Id: "d1", Filename: "policy.pdf", ProcessingStatus: "completed"},
			},
		},
	}
	clock := poll.NewFakeClock(time.Now())
	c := newTestCoordinator(api, clock)
	ctx := context.Background()

	c.Stage([]backend.FileUpload{pdf("policy.pdf")})
	require.NoError(t, c.Refresh(ctx))
	assert.Empty(t, c.Documents())

	ids, err := c.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	outcome, err := c.AwaitIndexing(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, outcome)
	assert.Empty(t, clock.Sleeps())

	docs := c.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].Id)
	assert.Equal(t, entity.ProcessingStatusCompleted, docs[0].ProcessingStatus)
	require.NoError(t, c.Select("d1", true))
}

func TestUploadFailsFileWhoseNameIsRegisteredElsewhere(t *testing.T) {
	api := &fakeAPI{
		upload: func(files []backend.FileUpload) (*dto.UploadDocumentsResponse, error) {
			return &dto.UploadDocumentsResponse{UploadedDocuments: []dto.UploadedDocumentDTO{
				{DocumentId: "d1", Filename: "old.pdf", Status: "processing"},
			}}, nil
		},
		listing: []dto.DocumentStatusList{{{Id: "r1", Filename: "old.pdf", ProcessingStatus: "completed"}}},
	}
	c := newTestCoordinator(api, poll.NewFakeClock(time.Now()))
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	c.Stage([]backend.FileUpload{pdf("a.pdf")})

	ids, err := c.Upload(ctx)
	assert.Equal(t, classify.KindUploadFailed, classify.KindOf(err))
	assert.Empty(t, ids)

	docs := c.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "r1", docs[0].Id)
}
