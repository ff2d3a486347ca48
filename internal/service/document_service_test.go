package service

import (
	"context"
	"strings"
	"testing"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageReportsRejectionsAndNotifies(t *testing.T) {
	h := newHarness(t)

	files := append(textFiles("ok.txt", "ok.txt"),
		backend.FileUpload{Filename: "photo.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		backend.FileUpload{Filename: "huge.txt", ContentType: "text/plain", Data: []byte(strings.Repeat("a", 10*1024*1024+1))},
	)

	res, err := h.docs.Stage(context.Background(), tab, files)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.txt"}, res.Staged)
	require.Len(t, res.Rejections, 3)
	reasons := map[string]string{}
	for _, r := range res.Rejections {
		reasons[r.Filename] = r.Reason
	}
	assert.Equal(t, string(document.RejectDuplicate), reasons["ok.txt"])
	assert.Equal(t, string(document.RejectType), reasons["photo.png"])
	assert.Equal(t, string(document.RejectSize), reasons["huge.txt"])

	assert.Len(t, h.publisher.ofType(constant.EventNotification), 3)
}

func TestRefreshRegistersBackendDocuments(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.docs = []dto.DocumentStatusDTO{
		{Id: "old-1", Filename: "handbook.pdf", ProcessingStatus: "completed"},
		{Id: "old-2", Filename: "draft.docx", ProcessingStatus: "processing"},
	}

	docs, err := h.docs.Refresh(context.Background(), tab)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "old-1", docs[0].Id)
	assert.False(t, docs[0].Selected)
}

func TestRefreshWithoutTokenIsAuthExpired(t *testing.T) {
	h := newHarness(t)

	_, err := h.docs.Refresh(context.Background(), tab)
	assert.Equal(t, classify.KindAuthExpired, classify.KindOf(err))
}

func TestSelectedDocumentsAreSentWithQuestion(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.documentMode(t)
	h.backend.docs = []dto.DocumentStatusDTO{{Id: "old-1", Filename: "handbook.pdf", ProcessingStatus: "completed"}}

	_, err := h.docs.Refresh(context.Background(), tab)
	require.NoError(t, err)
	docs, err := h.docs.Select(context.Background(), tab, "old-1", &dto.SelectDocumentRequest{Selected: true})
	require.NoError(t, err)
	require.True(t, docs[0].Selected)

	res, err := h.chat.SendTurn(context.Background(), tab, &dto.SendTurnRequest{Question: "What is in the handbook?"})
	require.NoError(t, err)
	require.Empty(t, res.ErrorKind)

	assert.JSONEq(t, `["old-1"]`, h.backend.lastChatForm()["documents"])
}

func TestSelectUnknownDocument(t *testing.T) {
	h := newHarness(t)

	_, err := h.docs.Select(context.Background(), tab, "missing", &dto.SelectDocumentRequest{Selected: true})
	assert.ErrorIs(t, err, document.ErrUnknownDocument)
}

func TestDeleteRemovesDocument(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.docs = []dto.DocumentStatusDTO{{Id: "old-1", Filename: "handbook.pdf", ProcessingStatus: "completed"}}
	_, err := h.docs.Refresh(context.Background(), tab)
	require.NoError(t, err)

	require.NoError(t, h.docs.Delete(context.Background(), tab, "old-1"))

	docs, err := h.docs.List(context.Background(), tab)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Contains(t, h.backend.deleted, "old-1")

	assert.ErrorIs(t, h.docs.Delete(context.Background(), tab, "old-1"), document.ErrUnknownDocument)
}
