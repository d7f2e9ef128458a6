// Package pushbullettest provides test doubles for the pushbullet package:
// an in-memory fake of the Pushbullet HTTP API and a canned Transport.
package pushbullettest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
)

// Server is an in-memory Pushbullet API for a single account.
// Use Server.URL as the client base URL.
type Server struct {
	*httptest.Server

	token string

	mu            sync.Mutex
	user          pushbullet.User
	devices       []pushbullet.Device
	pushes        []pushbullet.Push // newest first
	chats         []pushbullet.Chat
	subscriptions []pushbullet.Subscription
	accounts      map[string]pushbullet.ChatRecipient // normalized email -> account
	channels      map[string]pushbullet.Channel       // tag -> channel
	failStatus    int
	requests      int

	rateLimit  int
	rateWindow time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit answers 429 once a token has made limit requests within window.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateWindow = window
	}
}

// NewServer starts a fake API that accepts token. Close it when done.
func NewServer(token string, opts ...Option) *Server {
	now := timestamp(time.Now())
	s := &Server{
		token: token,
		user: pushbullet.User{
			Iden:            newIden(),
			Email:           "owner@example.com",
			EmailNormalized: "owner@example.com",
			Name:            "Account Owner",
			MaxUploadSize:   26214400,
			Created:         now,
			Modified:        now,
		},
		devices:       []pushbullet.Device{},
		pushes:        []pushbullet.Push{},
		chats:         []pushbullet.Chat{},
		subscriptions: []pushbullet.Subscription{},
		accounts:      make(map[string]pushbullet.ChatRecipient),
		channels:      make(map[string]pushbullet.Channel),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countRequests, s.injectFailure, s.authenticate)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(
			s.rateLimit,
			s.rateWindow,
			httprate.WithKeyFuncs(keyByToken),
			httprate.WithLimitHandler(rateLimited),
		))
	}

	r.Get("/users/me", s.handleGetUser)

	r.Get("/devices", s.handleListDevices)
	r.Post("/devices", s.handleCreateDevice)
	r.Get("/devices/{iden}", s.handleGetDevice)

	r.Get("/pushes", s.handleListPushes)
	r.Post("/pushes", s.handleCreatePush)
	r.Get("/pushes/{iden}", s.handleGetPush)

	r.Get("/chats", s.handleListChats)
	r.Post("/chats", s.handleCreateChat)

	r.Post("/subscriptions", s.handleCreateSubscription)

	return r
}

// Token returns the accepted access token.
func (s *Server) Token() string { return s.token }

// User returns the account owner.
func (s *Server) User() pushbullet.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// AddDevice registers a device directly and returns it.
func (s *Server) AddDevice(nickname string) pushbullet.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDevice(&pushbullet.NewDevice{Nickname: nickname})
}

// AddAccount registers another Pushbullet user that chats can be opened with.
func (s *Server) AddAccount(email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := normalizeEmail(email)
	s.accounts[normalized] = pushbullet.ChatRecipient{
		Type:            "user",
		Iden:            newIden(),
		Email:           email,
		EmailNormalized: normalized,
		Name:            name,
	}
}

// AddChannel creates a channel that can be subscribed to by tag.
func (s *Server) AddChannel(tag, name string) pushbullet.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := pushbullet.Channel{Iden: newIden(), Tag: tag, Name: name}
	s.channels[tag] = ch
	return ch
}

// Subscriptions returns the subscriptions created so far.
func (s *Server) Subscriptions() []pushbullet.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pushbullet.Subscription(nil), s.subscriptions...)
}

// FailWith makes every request answer with status until called with 0.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Middleware

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.failStatus
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, "server_error", http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := requestToken(r); token == "" || token != s.token {
			writeError(w, http.StatusUnauthorized, "invalid_request",
				"Access token is missing or invalid.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func keyByToken(r *http.Request) (string, error) {
	return "token:" + requestToken(r), nil
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "ratelimited",
		"You have been ratelimited for making too many requests to the server.")
}

// Handlers

func (s *Server) handleGetUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.User())
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]pushbullet.Device, 0, len(s.devices))
	for i := range s.devices {
		if s.devices[i].Active {
			devices = append(devices, s.devices[i])
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.findDevice(chi.URLParam(r, "iden")); d != nil {
		writeJSON(w, http.StatusOK, d)
		return
	}
	writeError(w, http.StatusNotFound, "not_found", "Device not found.")
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req pushbullet.NewDevice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON.")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "invalid_param", "Missing required parameter: nickname.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.addDevice(&req))
}

func (s *Server) handleListPushes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := q.Get("active") == "true"

	var modifiedAfter float64
	if v := q.Get("modified_after"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_param", "modified_after must be a number.")
			return
		}
		modifiedAfter = parsed
	}

	offset := 0
	if v := q.Get("cursor"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_cursor", "Cursor is not valid.")
			return
		}
		offset = parsed
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_param", "limit must be a positive integer.")
			return
		}
		limit = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]pushbullet.Push, 0, len(s.pushes))
	for i := range s.pushes {
		p := s.pushes[i]
		if activeOnly && !p.Active {
			continue
		}
		if p.Modified <= modifiedAfter {
			continue
		}
		matched = append(matched, p)
	}

	if offset > len(matched) {
		offset = len(matched)
	}
	page := matched[offset:]
	cursor := ""
	if limit > 0 && len(page) > limit {
		page = page[:limit]
		cursor = strconv.Itoa(offset + limit)
	}

	writeJSON(w, http.StatusOK, pushbullet.PushPage{Pushes: page, Cursor: cursor})
}

func (s *Server) handleGetPush(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iden := chi.URLParam(r, "iden")
	for i := range s.pushes {
		if s.pushes[i].Iden == iden {
			writeJSON(w, http.StatusOK, s.pushes[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Push not found.")
}

func (s *Server) handleCreatePush(w http.ResponseWriter, r *http.Request) {
	var req pushbullet.NotificationPost
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON.")
		return
	}

	switch req.Type {
	case pushbullet.PushTypeNote, pushbullet.PushTypeLink, pushbullet.PushTypeFile:
	default:
		writeError(w, http.StatusBadRequest, "invalid_param", "Invalid push type.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.DeviceIden != "" && s.findDevice(req.DeviceIden) == nil {
		writeError(w, http.StatusBadRequest, "invalid_param", "Unknown device_iden.")
		return
	}

	now := timestamp(time.Now())
	push := pushbullet.Push{
		Iden:                    newIden(),
		Active:                  true,
		Type:                    req.Type,
		Title:                   req.Title,
		Body:                    req.Body,
		URL:                     req.URL,
		Direction:               pushbullet.DirectionSelf,
		SenderIden:              s.user.Iden,
		SenderEmail:             s.user.Email,
		SenderEmailNormalized:   s.user.EmailNormalized,
		SenderName:              s.user.Name,
		ReceiverIden:            s.user.Iden,
		ReceiverEmail:           s.user.Email,
		ReceiverEmailNormalized: s.user.EmailNormalized,
		TargetDeviceIden:        req.DeviceIden,
		Created:                 now,
		Modified:                now,
	}
	s.pushes = append([]pushbullet.Push{push}, s.pushes...)

	writeJSON(w, http.StatusOK, push)
}

func (s *Server) handleListChats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := append([]pushbullet.Chat{}, s.chats...)
	sort.SliceStable(chats, func(i, j int) bool { return chats[i].Created > chats[j].Created })
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req pushbullet.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	with, ok := s.accounts[normalizeEmail(req.Email)]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_param", "No Pushbullet user with that email.")
		return
	}

	for i := range s.chats {
		if s.chats[i].With.EmailNormalized == with.EmailNormalized {
			writeJSON(w, http.StatusOK, s.chats[i])
			return
		}
	}

	now := timestamp(time.Now())
	chat := pushbullet.Chat{
		Iden:     newIden(),
		Active:   true,
		With:     with,
		Created:  now,
		Modified: now,
	}
	s.chats = append(s.chats, chat)

	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req pushbullet.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[req.ChannelTag]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_param", "No channel with that tag.")
		return
	}

	now := timestamp(time.Now())
	sub := pushbullet.Subscription{
		Iden:     newIden(),
		Active:   true,
		Channel:  ch,
		Created:  now,
		Modified: now,
	}
	s.subscriptions = append(s.subscriptions, sub)

	writeJSON(w, http.StatusOK, sub)
}

// Helpers. Callers hold s.mu.

func (s *Server) addDevice(req *pushbullet.NewDevice) pushbullet.Device {
	now := timestamp(time.Now())
	d := pushbullet.Device{
		Iden:         newIden(),
		Active:       true,
		Nickname:     req.Nickname,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		AppVersion:   req.AppVersion,
		Icon:         req.Icon,
		Type:         deviceType(req),
		Pushable:     true,
		HasSMS:       req.HasSMS,
		PushToken:    req.PushToken,
		Created:      now,
		Modified:     now,
	}
	s.devices = append(s.devices, d)
	return d
}

// deviceType falls back to the icon when the caller sent no type.
func deviceType(req *pushbullet.NewDevice) string {
	if req.Type != "" {
		return req.Type
	}
	return req.Icon
}

func (s *Server) findDevice(iden string) *pushbullet.Device {
	for i := range s.devices {
		if s.devices[i].Iden == iden {
			return &s.devices[i]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
			"cat":     "~(=^‥^)",
		},
	})
}

// requestToken accepts both header styles the real API accepts.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("Access-Token")
}

func newIden() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// timestamp returns epoch seconds with microsecond precision.
func timestamp(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
