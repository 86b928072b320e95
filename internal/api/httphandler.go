package api

import (
	"authbot/internal/faq"
	"authbot/internal/flow"
	"authbot/internal/metrics"
	"authbot/internal/types"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"
	log "github.com/sirupsen/logrus"
)

// Authenticator is the auth flow as seen by the HTTP layer.
type Authenticator interface {
	Start(ctx context.Context, user types.User) flow.Outcome
	SubmitPhone(ctx context.Context, user types.User, phone string) flow.Outcome
	ForgetPhone(ctx context.Context, user types.User)
}

type Handler struct {
	Auth Authenticator
	FAQ  *faq.Catalog
	// ErrorMessage is the only failure text the chat user ever sees.
	ErrorMessage string
}

type authRequest struct {
	UserID   int64   `json:"user_id"`
	Username *string `json:"username"`
	Phone    string  `json:"phone,omitempty"`
}

type authResponse struct {
	Status    string `json:"status"`
	Link      string `json:"link,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"`
	Message   string `json:"message,omitempty"`
}

type faqEntry struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Callback string `json:"callback"`
}

func NewHandler(auth Authenticator, catalog *faq.Catalog, errorMessage string) *Handler {
	if catalog == nil {
		catalog = faq.NewCatalog(nil)
	}
	return &Handler{
		Auth:         auth,
		FAQ:          catalog,
		ErrorMessage: errorMessage,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/start", h.handleAuthStart)
	mux.HandleFunc("POST /auth/phone", h.handleAuthPhone)
	mux.HandleFunc("DELETE /auth/phone", h.handleForgetPhone)
	mux.HandleFunc("GET /faq", h.handleFAQThemes)
	mux.HandleFunc("GET /faq/{theme}", h.handleFAQTheme)
	mux.HandleFunc("GET /faq/{theme}/{question}", h.handleFAQQuestion)
	mux.HandleFunc("GET /faq/callback/{data}", h.handleFAQCallback)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return gzhttp.GzipHandler(mux)
}

func (h *Handler) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	req, ok := readAuthRequest(w, r)
	if !ok {
		return
	}
	out := h.Auth.Start(r.Context(), types.User{ID: req.UserID, Username: req.Username})
	h.writeOutcome(w, out)
}

func (h *Handler) handleAuthPhone(w http.ResponseWriter, r *http.Request) {
	req, ok := readAuthRequest(w, r)
	if !ok {
		return
	}
	out := h.Auth.SubmitPhone(r.Context(), types.User{ID: req.UserID, Username: req.Username}, req.Phone)
	h.writeOutcome(w, out)
}

func (h *Handler) handleForgetPhone(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	h.Auth.ForgetPhone(r.Context(), types.User{ID: userID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out flow.Outcome) {
	resp := authResponse{Status: flow.StatusTextMap[out.Action]}
	code := http.StatusOK
	switch out.Action {
	case flow.ReturnCachedLink, flow.ReturnNewLink:
		resp.Link = out.Link
		resp.ExpiresAt = out.ExpiresAt
		resp.ExpiresIn = flow.ReadableExpiry(out.ExpiresAt, out.Now)
	case flow.ReportError:
		resp.Message = h.ErrorMessage
		code = http.StatusBadGateway
	}
	if err := writeJSON(w, code, resp); err != nil {
		log.WithError(err).Warn("failed to write auth response")
	}
}

func (h *Handler) handleFAQThemes(w http.ResponseWriter, r *http.Request) {
	h.writeThemes(w)
}

func (h *Handler) handleFAQTheme(w http.ResponseWriter, r *http.Request) {
	ti, err := strconv.Atoi(r.PathValue("theme"))
	if err != nil {
		http.Error(w, "invalid theme", http.StatusBadRequest)
		return
	}
	h.writeTheme(w, ti)
}

func (h *Handler) handleFAQQuestion(w http.ResponseWriter, r *http.Request) {
	ti, err1 := strconv.Atoi(r.PathValue("theme"))
	qi, err2 := strconv.Atoi(r.PathValue("question"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid question", http.StatusBadRequest)
		return
	}
	h.writeQuestion(w, ti, qi)
}

// handleFAQCallback resolves the callback data attached to FAQ buttons, so the
// front-end can pass a pressed button through unchanged.
func (h *Handler) handleFAQCallback(w http.ResponseWriter, r *http.Request) {
	data := r.PathValue("data")
	switch {
	case data == faq.CallbackThemes, data == faq.CallbackHome, data == faq.CallbackBack:
		h.writeThemes(w)
	case strings.HasPrefix(data, faq.CallbackTheme+":"):
		ti, err := faq.ParseThemeCallback(data)
		if err != nil {
			http.Error(w, "invalid callback", http.StatusBadRequest)
			return
		}
		h.writeTheme(w, ti)
	case strings.HasPrefix(data, faq.CallbackQuestion+":"):
		ti, qi, err := faq.ParseQuestionCallback(data)
		if err != nil {
			http.Error(w, "invalid callback", http.StatusBadRequest)
			return
		}
		h.writeQuestion(w, ti, qi)
	default:
		http.Error(w, "unknown callback", http.StatusBadRequest)
	}
}

func (h *Handler) writeThemes(w http.ResponseWriter) {
	themes := h.FAQ.Themes()
	entries := make([]faqEntry, 0, len(themes))
	for i, t := range themes {
		entries = append(entries, faqEntry{Index: i, Title: t.Theme, Callback: faq.ThemeCallback(i)})
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{"themes": entries})
}

func (h *Handler) writeTheme(w http.ResponseWriter, ti int) {
	theme, ok := h.FAQ.Theme(ti)
	if !ok {
		http.Error(w, types.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	entries := make([]faqEntry, 0, len(theme.Questions))
	for i, q := range theme.Questions {
		entries = append(entries, faqEntry{Index: i, Title: q.Question, Callback: faq.QuestionCallback(ti, i)})
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"theme":     theme.Theme,
		"questions": entries,
		"back":      faq.CallbackBack,
		"home":      faq.CallbackHome,
	})
}

func (h *Handler) writeQuestion(w http.ResponseWriter, ti, qi int) {
	q, ok := h.FAQ.Question(ti, qi)
	if !ok {
		http.Error(w, types.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"question": q.Question,
		"answer":   q.Answer,
		"back":     faq.ThemeCallback(ti),
		"home":     faq.CallbackHome,
	})
}

// readAuthRequest decodes and validates the auth body, answering 400 itself on failure.
func readAuthRequest(w http.ResponseWriter, r *http.Request) (authRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return authRequest{}, false
	}
	defer func() {
		_ = r.Body.Close()
	}()
	var req authRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return authRequest{}, false
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return authRequest{}, false
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		req.Username = nil
	}
	return req, true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
