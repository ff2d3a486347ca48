package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/logger"
	"docchat-client/internal/repository/memory"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/events"
	"docchat-client/pkg/poll"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/dispatch"
	"docchat-client/pkg/rag/message"
)

// fakeBackend is an in-process stand-in for the assistant API.
type fakeBackend struct {
	mu sync.Mutex

	probeStatus int
	chatStatus  int
	chatBody    string
	// indexedAfter is the number of status queries after which uploaded
	// documents report finalStatus; negative keeps them processing forever.
	indexedAfter int
	finalStatus  string

	probes      int
	uploads     int
	statusCalls int
	chats       int
	chatForms   []map[string]string
	docs        []dto.DocumentStatusDTO
	sessions    map[string]json.RawMessage
	saved       []dto.SaveSessionRequest
	deleted     []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chatBody:     `{"answer":"Twenty days.","sources":["policy.pdf",{"metadata":{"filename":"handbook.docx"}}]}`,
		indexedAfter: 1,
		finalStatus:  "completed",
		sessions:     map[string]json.RawMessage{},
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/profile":
		f.probes++
		if f.probeStatus != 0 {
			w.WriteHeader(f.probeStatus)
			_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"42"}`))

	case r.URL.Path == constant.BackendUploadDocumentsPath:
		f.uploads++
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var out dto.UploadDocumentsResponse
		for _, fh := range r.MultipartForm.File["files"] {
			id := fmt.Sprintf("doc-%d", len(f.docs)+1)
			f.docs = append(f.docs, dto.DocumentStatusDTO{Id: id, Filename: fh.Filename, ProcessingStatus: "processing"})
			out.UploadedDocuments = append(out.UploadedDocuments, dto.UploadedDocumentDTO{DocumentId: id, Filename: fh.Filename, Status: "processing"})
		}
		_ = json.NewEncoder(w).Encode(out)

	case r.URL.Path == constant.BackendUserDocumentsPath:
		f.statusCalls++
		if f.indexedAfter >= 0 && f.statusCalls >= f.indexedAfter {
			for i := range f.docs {
				if f.docs[i].ProcessingStatus == "processing" {
					f.docs[i].ProcessingStatus = f.finalStatus
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"documents": f.docs})

	case strings.HasPrefix(r.URL.Path, constant.BackendDocumentPath):
		id := strings.TrimPrefix(r.URL.Path, constant.BackendDocumentPath)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == constant.BackendRAGChatPath:
		f.chats++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f.chatForms = append(f.chatForms, form)
		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
		}
		_, _ = w.Write([]byte(f.chatBody))

	case r.URL.Path == constant.BackendSaveSessionPath:
		var req dto.SaveSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.saved = append(f.saved, req)
		id := fmt.Sprintf("s-%d", len(f.saved))
		msgs, _ := json.Marshal(req.Messages)
		f.sessions[id] = msgs
		_ = json.NewEncoder(w).Encode(dto.SaveSessionResponse{
			SessionId:    id,
			Title:        req.Title,
			MessageCount: len(req.Messages),
			CreatedAt:    "2026-01-02T03:04:05",
		})

	case r.URL.Path == constant.BackendSessionsPath:
		var out dto.SessionListResponse
		for id := range f.sessions {
			out.Sessions = append(out.Sessions, dto.SessionSummaryDTO{SessionId: id, Title: "t", Context: "general", CreatedAt: "2026-01-02T03:04:05"})
		}
		_ = json.NewEncoder(w).Encode(out)

	case strings.HasPrefix(r.URL.Path, constant.BackendSessionPath):
		id := strings.TrimPrefix(r.URL.Path, constant.BackendSessionPath)
		msgs, ok := f.sessions[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Session not found"}`))
			return
		}
		if r.Method == http.MethodDelete {
			delete(f.sessions, id)
			f.deleted = append(f.deleted, id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(dto.SessionDetailDTO{SessionId: id, Title: "t", Context: "documents", Messages: msgs})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeBackend) counts() (probes, uploads, chats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes, f.uploads, f.chats
}

func (f *fakeBackend) lastChatForm() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.chatForms) == 0 {
		return nil
	}
	return f.chatForms[len(f.chatForms)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	backend   *fakeBackend
	publisher *recordingPublisher
	clock     *poll.FakeClock
	registry  *WorkspaceRegistry

	chat     IChatbotService
	docs     IDocumentService
	sessions ISavedSessionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fb := newFakeBackend()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	log := logger.NewNopLogger()
	client := backend.NewClient(srv.URL, "/profile", 5*time.Second)
	factory := message.NewFactory(nil)
	classifier := classify.NewClassifier(log)
	pub := &recordingPublisher{}
	clock := poll.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	registry := NewWorkspaceRegistry(client, memory.NewConversationRepository(time.Hour), pub, factory, WorkspaceOptions{
		PollInterval:   2 * time.Second,
		PollTimeout:    10 * time.Second,
		MaxUploadBytes: 10 * 1024 * 1024,
		TitleMaxLength: 50,
		TTL:            time.Hour,
		Clock:          clock,
	}, log)

	return &harness{
		backend:   fb,
		publisher: pub,
		clock:     clock,
		registry:  registry,
		chat:      NewChatbotService(registry, dispatch.NewDispatcher(client, "en-US"), classifier, factory, log),
		docs:      NewDocumentService(registry, classifier, log),
		sessions:  NewSavedSessionService(registry, classifier, log),
	}
}

func textFiles(names ...string) []backend.FileUpload {
	out := make([]backend.FileUpload, 0, len(names))
	for _, name := range names {
		out = append(out, backend.FileUpload{Filename: name, ContentType: "text/plain", Data: []byte("Employees get twenty days of leave.")})
	}
	return out
}
