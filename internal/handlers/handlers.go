package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"deal-finder-api/internal/middleware"
	"deal-finder-api/internal/models"
	"deal-finder-api/internal/services"
	"deal-finder-api/pkg/cache"
)

type Handler struct {
	sessions *services.SessionStore
	fetcher  services.DealFetcher
	cache    *cache.RedisCache
	limiter  *middleware.IPRateLimiter
}

// New wires the HTTP handlers. cache and limiter may be nil.
func New(sessions *services.SessionStore, fetcher services.DealFetcher, c *cache.RedisCache, limiter *middleware.IPRateLimiter) *Handler {
	return &Handler{sessions: sessions, fetcher: fetcher, cache: c, limiter: limiter}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/api/info", h.Info)
	r.GET("/rate-limit/status", h.RateLimitStatus)

	r.GET("/deals", h.SearchDeals)

	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/sessions/:id/search", h.Search)
	r.PUT("/sessions/:id/filter", h.SetFilter)
	r.PUT("/sessions/:id/sort", h.SetSort)
	r.GET("/sessions/:id/events", h.Events)

	r.GET("/cache/stats", h.CacheStats)
	r.GET("/cache/debug", h.CacheDebug)
	r.DELETE("/cache/flush", h.CacheFlush)
}

func (h *Handler) Health(c *gin.Context) {
	health := gin.H{
		"status":   "healthy",
		"service":  "deal-finder-api",
		"version":  "1.0.0",
		"sessions": h.sessions.Len(),
	}
	if h.cache.IsAvailable() {
		health["cache"] = "redis connected"
	} else {
		health["cache"] = "redis unavailable"
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) Info(c *gin.Context) {
	platforms := make([]string, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		platforms = append(platforms, string(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        "Deal Finder API",
		"version":     "1.0.0",
		"description": "Generates simulated e-commerce deals for a product with Gemini, with platform filtering and sorting",
		"endpoints": map[string]string{
			"GET /deals":                "One-shot search with filter and sort",
			"POST /sessions":            "Create a search session",
			"GET /sessions/:id":         "Current session view",
			"POST /sessions/:id/search": "Submit a search",
			"PUT /sessions/:id/filter":  "Change platform filter",
			"PUT /sessions/:id/sort":    "Change sort key",
			"GET /sessions/:id/events":  "Server-sent view updates",
			"DELETE /sessions/:id":      "End a session",
			"GET /health":               "Health check",
			"GET /cache/stats":          "Cache statistics",
			"GET /rate-limit/status":    "Caller's rate limit bucket",
		},
		"platforms":    platforms,
		"sort_options": models.SortOptions,
	})
}

func (h *Handler) RateLimitStatus(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, gin.H{"ip": c.ClientIP(), "limited": false})
		return
	}
	c.JSON(http.StatusOK, h.limiter.Status(c.ClientIP()))
}

// SearchDeals runs a fetch and projection in one request without a session.
func (h *Handler) SearchDeals(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		respondError(c, http.StatusBadRequest, "empty_query", services.EmptyQueryMessage)
		return
	}

	sel := models.DefaultSelection()
	if p := c.Query("platform"); p != "" {
		sel.Platform = p
	}
	if s := c.Query("sort"); s != "" {
		sel.Sort = models.SortKey(s)
	}
	if !sel.Sort.IsValid() {
		respondError(c, http.StatusBadRequest, "invalid_selection", "unknown sort key: "+string(sel.Sort))
		return
	}

	deals, err := h.fetcher.FetchDeals(c.Request.Context(), query)
	if err != nil {
		log.Printf("[%s] Search error: %v", middleware.RequestIDFromContext(c), err)
		respondError(c, http.StatusBadGateway, "search_failed", services.FailurePrefix+err.Error())
		return
	}
	if len(deals) == 0 {
		respondError(c, http.StatusNotFound, "no_deals", services.NoDealsMessage)
		return
	}

	if sel.Platform != models.AllPlatforms && !services.HasPlatform(deals, sel.Platform) {
		respondError(c, http.StatusBadRequest, "invalid_selection", "platform not in results: "+sel.Platform)
		return
	}

	c.JSON(http.StatusOK, services.BuildView("", services.Snapshot{
		Phase:     models.PhaseReady,
		Query:     query,
		Deals:     deals,
		Selection: sel,
	}))
}

func (h *Handler) CreateSession(c *gin.Context) {
	id, ctrl := h.sessions.Create()
	c.JSON(http.StatusCreated, services.BuildView(id, ctrl.Snapshot()))
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.BuildView(id, ctrl.Snapshot()))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		respondError(c, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// Search submits a query and responds once the session settles. A failed
// fetch is still a 200: the failure is part of the returned view.
func (h *Handler) Search(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := ctrl.Submit(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		respondError(c, http.StatusBadRequest, "empty_query", ctrl.Snapshot().Notice)
		return
	case errors.Is(err, services.ErrSuperseded):
		respondError(c, http.StatusConflict, "search_superseded", err.Error())
		return
	case err != nil:
		log.Printf("[%s] Session %s search for '%s' failed: %v", middleware.RequestIDFromContext(c), id, req.Query, err)
	}

	c.JSON(http.StatusOK, services.BuildView(id, ctrl.Snapshot()))
}

func (h *Handler) SetFilter(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := ctrl.SetPlatformFilter(req.Platform); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_selection", err.Error())
		return
	}

	c.JSON(http.StatusOK, services.BuildView(id, ctrl.Snapshot()))
}

func (h *Handler) SetSort(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := ctrl.SetSortKey(req.Sort); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_selection", err.Error())
		return
	}

	c.JSON(http.StatusOK, services.BuildView(id, ctrl.Snapshot()))
}

// Events streams the session view as server-sent events, starting with the
// current one. Bursts of changes are coalesced into the latest view.
func (h *Handler) Events(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func(services.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	select {
	case changed <- struct{}{}:
	default:
	}

	var sent bool
	var lastRevision uint64
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			snap := ctrl.Snapshot()
			if !sent || snap.Revision > lastRevision {
				sent = true
				lastRevision = snap.Revision
				c.SSEvent("view", services.BuildView(id, snap))
			}
			return true
		}
	})
}

func (h *Handler) CacheStats(c *gin.Context) {
	if !h.cache.IsAvailable() {
		respondError(c, http.StatusServiceUnavailable, "cache_unavailable", "cache not available")
		return
	}
	c.JSON(http.StatusOK, h.cache.GetStats(c.Request.Context()))
}

func (h *Handler) CacheDebug(c *gin.Context) {
	if !h.cache.IsAvailable() {
		respondError(c, http.StatusServiceUnavailable, "cache_unavailable", "cache not available")
		return
	}

	ctx := c.Request.Context()
	keys := h.cache.GetAllKeys(ctx)
	keyDetails := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		ttl := h.cache.GetKeyTTL(ctx, key)
		keyDetails = append(keyDetails, gin.H{
			"key":         key,
			"ttl_seconds": int(ttl.Seconds()),
			"expires_in":  ttl.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_keys":  len(keys),
		"cache_keys":  keyDetails,
		"cache_stats": h.cache.GetStats(ctx),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) CacheFlush(c *gin.Context) {
	if !h.cache.IsAvailable() {
		respondError(c, http.StatusServiceUnavailable, "cache_unavailable", "cache not available")
		return
	}

	n, err := h.cache.FlushCache(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "flush_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "cache flushed successfully",
		"deleted":   n,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) session(c *gin.Context) (string, *services.Controller, bool) {
	id := c.Param("id")
	ctrl, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, http.StatusNotFound, "session_not_found", err.Error())
		return "", nil, false
	}
	return id, ctrl, true
}

func respondError(c *gin.Context, code int, errType, message string) {
	c.JSON(code, models.ErrorResponse{
		Error:   errType,
		Code:    code,
		Message: message,
	})
}
