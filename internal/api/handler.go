package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealbrowser/internal/history"
	"mealbrowser/internal/meal"
	"mealbrowser/internal/session"
	"mealbrowser/internal/thumbnail"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	upstreamTimeout = 15 * time.Second
	storeTimeout    = 5 * time.Second
)

// SessionRegistry hands out the view state of a browser session.
type SessionRegistry interface {
	Acquire(id string) (string, *meal.Browser, bool)
}

// ThumbnailService defines the interface for the image resizing proxy.
type ThumbnailService interface {
	Thumbnail(ctx context.Context, src string, width int) ([]byte, error)
	DefaultWidth() int
}

// Pinger is a backing service whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests.
type Handler struct {
	Sessions   SessionRegistry
	Fetcher    meal.Fetcher
	History    history.Store
	Thumbnails ThumbnailService
	Logger     *zap.Logger

	// Dependencies are pinged by /healthz, keyed by name.
	Dependencies map[string]Pinger

	// SessionTTL is used as the cookie lifetime.
	SessionTTL time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(sessions SessionRegistry, fetcher meal.Fetcher, store history.Store, thumbs ThumbnailService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Sessions:     sessions,
		Fetcher:      fetcher,
		History:      store,
		Thumbnails:   thumbs,
		Logger:       logger,
		Dependencies: map[string]Pinger{},
		SessionTTL:   30 * time.Minute,
	}
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// Register installs the page template and every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(Templates())

	r.GET("/", h.Index)
	r.POST("/area", h.SelectArea)
	r.POST("/search", h.Search)

	r.GET("/api/meals", h.GetMealsByArea)
	r.GET("/api/search", h.SearchMeals)
	r.GET("/api/history", h.GetHistory)

	r.GET("/thumbnails", h.GetThumbnail)
	r.GET("/healthz", h.Health)
}

type areaButton struct {
	Name   string
	Active bool
}

type pageData struct {
	Areas      []areaButton
	Input      string
	Meals      []meal.Meal
	ThumbWidth int
}

// Index renders the browser page. A new session starts on the default area.
func (h *Handler) Index(c *gin.Context) {
	sessionID, browser, isNew := h.session(c)
	if isNew {
		ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
		defer cancel()
		if err := browser.SelectArea(ctx, meal.DefaultArea); err == nil {
			h.record(ctx, sessionID, history.KindArea, meal.DefaultArea.String(), browser)
		}
	}
	h.render(c, browser)
}

// SelectArea handles a click on one of the cuisine buttons.
func (h *Handler) SelectArea(c *gin.Context) {
	area, err := meal.ParseArea(c.PostForm("area"))
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("unknown area: %q", c.PostForm("area")))
		return
	}

	sessionID, browser, _ := h.session(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	// Upstream failures leave the previous list on screen.
	if err := browser.SelectArea(ctx, area); err == nil {
		h.record(ctx, sessionID, history.KindArea, area.String(), browser)
	}
	h.render(c, browser)
}

// Search handles the search form submission.
func (h *Handler) Search(c *gin.Context) {
	sessionID, browser, _ := h.session(c)
	browser.SetInput(c.PostForm("s"))
	query := browser.Input()

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	if err := browser.Search(ctx, query); err == nil {
		h.record(ctx, sessionID, history.KindSearch, query, browser)
	}
	h.render(c, browser)
}

// GetMealsByArea returns the meals of one area as JSON.
func (h *Handler) GetMealsByArea(c *gin.Context) {
	area, err := meal.ParseArea(c.Query("area"))
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("unknown area: %q", c.Query("area")))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	meals, err := h.Fetcher.FilterByArea(ctx, area)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal.Response{Meals: nonNil(meals)})
}

// SearchMeals returns the meals matching the s query parameter as JSON.
func (h *Handler) SearchMeals(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	meals, err := h.Fetcher.SearchByName(ctx, c.Query("s"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal.Response{Meals: nonNil(meals)})
}

// GetHistory returns the most recent browse actions of the caller's session.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", raw))
			return
		}
		limit = n
	}

	sessionID, _, _ := h.session(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	entries, err := h.History.Recent(ctx, sessionID, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, "Database query timed out after 5 seconds")
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetThumbnail serves a resized copy of a meal picture.
func (h *Handler) GetThumbnail(c *gin.Context) {
	src := c.Query("src")
	width := h.Thumbnails.DefaultWidth()
	if raw := c.Query("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, fmt.Sprintf("invalid width: %q", raw))
			return
		}
		width = thumbnail.ClampWidth(n)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), upstreamTimeout)
	defer cancel()

	data, err := h.Thumbnails.Thumbnail(ctx, src, width)
	if err != nil {
		if errors.Is(err, thumbnail.ErrInvalidSource) || errors.Is(err, thumbnail.ErrHostNotAllowed) {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		h.upstreamError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Health reports readiness. Any dependency failing its ping turns it into a 503.
func (h *Handler) Health(c *gin.Context) {
	if len(h.Dependencies) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(h.Dependencies))
	for name, dep := range h.Dependencies {
		if err := dep.Ping(ctx); err != nil {
			h.Logger.Warn("dependency check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

func (h *Handler) session(c *gin.Context) (string, *meal.Browser, bool) {
	cookie, _ := c.Cookie(session.CookieName)
	id, browser, isNew := h.Sessions.Acquire(cookie)
	if id != cookie {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(session.CookieName, id, int(h.SessionTTL.Seconds()), "/", "", false, true)
	}
	return id, browser, isNew
}

func (h *Handler) render(c *gin.Context, browser *meal.Browser) {
	view := browser.View()

	buttons := make([]areaButton, 0, len(meal.Areas()))
	for _, a := range meal.Areas() {
		buttons = append(buttons, areaButton{Name: a.String(), Active: a == view.Area})
	}

	c.HTML(http.StatusOK, "index.html", pageData{
		Areas:      buttons,
		Input:      view.Input,
		Meals:      view.Meals,
		ThumbWidth: h.Thumbnails.DefaultWidth(),
	})
}

// record stores a browse action. Failures never reach the user.
func (h *Handler) record(ctx context.Context, sessionID string, kind history.Kind, term string, browser *meal.Browser) {
	entry := &history.Entry{
		SessionID:   sessionID,
		Kind:        kind,
		Term:        term,
		ResultCount: len(browser.View().Meals),
	}
	if err := h.History.Record(ctx, entry); err != nil {
		h.Logger.Warn("failed to record browse history", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (h *Handler) upstreamError(c *gin.Context, err error) {
	h.Logger.Warn("upstream request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		c.String(http.StatusGatewayTimeout, "TheMealDB request timed out")
		return
	}
	c.String(http.StatusBadGateway, fmt.Sprintf("mealdb err: %s", err.Error()))
}

func nonNil(meals []meal.Meal) []meal.Meal {
	if meals == nil {
		return []meal.Meal{}
	}
	return meals
}
