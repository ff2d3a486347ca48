package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/logger"
	"docchat-client/internal/repository/contract"
	"docchat-client/pkg/auth"
	"docchat-client/pkg/events"
	"docchat-client/pkg/poll"
	"docchat-client/pkg/rag/dispatch"
	"docchat-client/pkg/rag/document"
	"docchat-client/pkg/rag/history"
	"docchat-client/pkg/rag/message"
	"docchat-client/pkg/rag/session"

	"github.com/patrickmn/go-cache"
)

// BackendAPI is everything the services need from the assistant backend.
// backend.Client implements it.
type BackendAPI interface {
	document.API
	dispatch.API
	history.API
}

// Workspace is one browser tab's isolated state. turnMu serializes chat
// turns so two polling loops never run for the same tab.
type Workspace struct {
	TabID    string
	Auth     *auth.Context
	Store    *session.Store
	Docs     *document.Coordinator
	Sessions *history.Manager

	turnMu sync.Mutex
}

type WorkspaceOptions struct {
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxUploadBytes int64
	TitleMaxLength int
	TTL            time.Duration
	Clock          poll.Clock
}

// WorkspaceRegistry creates workspaces on first use and drops them after a
// period of inactivity.
type WorkspaceRegistry struct {
	mu        sync.Mutex
	cache     *cache.Cache
	api       BackendAPI
	repo      contract.ConversationRepository
	publisher events.Publisher
	factory   *message.Factory
	opts      WorkspaceOptions
	logger    logger.ILogger
}

func NewWorkspaceRegistry(api BackendAPI, repo contract.ConversationRepository, publisher events.Publisher, factory *message.Factory, opts WorkspaceOptions, log logger.ILogger) *WorkspaceRegistry {
	if opts.Clock == nil {
		opts.Clock = poll.WallClock()
	}
	c := cache.New(opts.TTL, 10*time.Minute)
	c.OnEvicted(func(tabID string, _ interface{}) {
		log.Debug("WorkspaceRegistry", "Workspace expired", map[string]interface{}{"tab_id": tabID})
	})
	return &WorkspaceRegistry{
		cache:     c,
		api:       api,
		repo:      repo,
		publisher: publisher,
		factory:   factory,
		opts:      opts,
		logger:    log,
	}
}

// Get returns the tab's workspace, creating and loading it on first use.
// Every access extends its lifetime.
func (r *WorkspaceRegistry) Get(ctx context.Context, tabID string) (*Workspace, error) {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return nil, ErrMissingTabID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(tabID); found {
		ws := x.(*Workspace)
		r.cache.SetDefault(tabID, ws)
		return ws, nil
	}

	authCtx := auth.NewContext(tabID, r.publisher)
	waiter := poll.NewWaiter(r.opts.PollInterval, r.opts.PollTimeout, r.opts.Clock)
	ws := &Workspace{
		TabID:    tabID,
		Auth:     authCtx,
		Store:    session.NewStore(tabID, r.repo, r.factory, r.logger),
		Docs:     document.NewCoordinator(r.api, authCtx, waiter, document.NewValidator(r.opts.MaxUploadBytes), r.logger),
		Sessions: history.NewManager(r.api, r.factory, r.opts.TitleMaxLength, r.logger),
	}
	ws.Store.Load(ctx)

	r.cache.SetDefault(tabID, ws)
	r.logger.Info("WorkspaceRegistry", "Workspace created", map[string]interface{}{"tab_id": tabID})
	return ws, nil
}

// Count reports how many workspaces are live.
func (r *WorkspaceRegistry) Count() int {
	return r.cache.ItemCount()
}

func (r *WorkspaceRegistry) notify(ctx context.Context, tabID, level, text string) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, events.NewNotification(tabID, level, text)); err != nil {
		r.logger.Warn("WorkspaceRegistry", "Failed to publish notification", map[string]interface{}{
			"tab_id": tabID,
			"error":  err.Error(),
		})
	}
}

func conversationResponse(ws *Workspace) *dto.ConversationResponse {
	return chatMapper.ConversationToResponse(ws.Store.Snapshot())
}
