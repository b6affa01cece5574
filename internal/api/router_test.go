package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/auth"
	"productboards-backend/internal/config"
	"productboards-backend/internal/crypto"
	"productboards-backend/internal/handlers"
	"productboards-backend/internal/integrations/slack"
	"productboards-backend/internal/metrics"
	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/services"
	"productboards-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type scriptedAI struct {
	mu      sync.Mutex
	reply   string
	chatErr error
}

func (f *scriptedAI) Chat(ctx context.Context, turns []ai.Turn) (*ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &ai.Completion{Content: f.reply}, nil
}

func (f *scriptedAI) ExtractProduct(ctx context.Context, url string) (*ai.ExtractedProduct, error) {
	price := 1299.0
	return &ai.ExtractedProduct{Name: "Desk Lamp", Price: &price, Currency: "INR"}, nil
}

func (f *scriptedAI) ProductNote(ctx context.Context, name string, price *float64) (string, error) {
	return "Solid pick for the price.", nil
}

func (f *scriptedAI) BoardInsight(ctx context.Context, items []ai.InsightItem) (string, error) {
	return "The lamp is the best value.", nil
}

func (f *scriptedAI) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatErr = err
}

type testServer struct {
	handler http.Handler
	ai      *scriptedAI
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:            testSecret,
		TokenExpiration:      time.Hour,
		PublicBaseURL:        "https://boards.example.com",
		AITimeout:            5 * time.Second,
		AIRateLimitPerMinute: rateLimit,
		AllowedOrigins:       []string{"*"},
	}

	messageFeed := realtime.NewHub[models.Message]()
	priceFeed := realtime.NewHub[models.PriceHistory]()
	st := memory.New(
		memory.WithMessageHook(func(m models.Message) { messageFeed.Publish(m.ConversationID, m) }),
		memory.WithPriceHook(func(p models.PriceHistory) { priceFeed.Publish(p.ProductLinkID, p) }),
	)
	sealer, err := crypto.NewSealer(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	fake := &scriptedAI{reply: "Try the Sony WH-1000XM4."}
	m := metrics.New()

	gate := services.NewGate(st)
	conversations := services.NewConversationService(st, gate)
	messages := services.NewMessageService(st, gate, messageFeed)
	pipeline := services.NewSendPipeline(st, gate, fake, cfg.AITimeout, m)
	boards := services.NewBoardService(st, gate, fake)
	alerts := services.NewAlertService(st, sealer, func(context.Context, string, slack.PriceAlert) error { return nil })
	products := services.NewProductService(st, gate, fake, alerts, priceFeed)

	router := NewRouter(RouterDependencies{
		AuthHandler:          handlers.NewAuthHandler(services.NewAuthService(st, cfg)),
		ConversationHandlers: handlers.NewConversationHandlers(conversations, messages, pipeline, cfg.AITimeout),
		StreamHandlers:       handlers.NewStreamHandlers(messages, products, cfg.AllowedOrigins),
		BoardHandlers:        handlers.NewBoardHandlers(boards),
		ProductHandlers:      handlers.NewProductHandlers(products),
		SharedHandlers:       handlers.NewSharedHandlers(boards, cfg.PublicBaseURL),
		AIHandlers:           handlers.NewAIHandlers(services.NewAssistantService(fake)),
		AlertHandlers:        handlers.NewAlertHandlers(alerts),
		Metrics:              m,
		Config:               cfg,
	})
	return &testServer{handler: router, ai: fake}
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.NewAccessToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "productboards_http_requests_total")
}

func TestSignupLoginAndUseToken(t *testing.T) {
	s := newTestServer(t, 0)
	creds := models.SignupRequest{Email: "Shopper@Example.com", Password: "hunter2hunter2"}

	var user models.UserResponse
	rec := s.do(t, http.MethodPost, "/v1/auth/signup", "", creds, &user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "shopper@example.com", user.Email)

	rec = s.do(t, http.MethodPost, "/v1/auth/signup", "", creds, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: creds.Email, Password: "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var login models.AuthResponse
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: creds.Email, Password: creds.Password}, &login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, login.AccessToken)

	var convs []models.Conversation
	rec = s.do(t, http.MethodGet, "/v1/conversations", login.AccessToken, nil, &convs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, convs)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/v1/boards", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/boards", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConversationSendFlow(t *testing.T) {
	s := newTestServer(t, 0)
	token := tokenFor(t, uuid.New())

	var conv models.Conversation
	rec := s.do(t, http.MethodPost, "/v1/conversations", token, nil, &conv)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, services.DefaultConversationTitle, conv.Title)

	var sent models.Message
	rec = s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", token,
		models.SendMessageRequest{Content: "  noise cancelling headphones  "}, &sent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.RoleUser, sent.Role)
	assert.Equal(t, "noise cancelling headphones", sent.Content)

	var msgs []models.Message
	rec = s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID.String()+"/messages", token, nil, &msgs)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Try the Sony WH-1000XM4.", msgs[1].Content)

	var renamed models.Conversation
	rec = s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID.String(), token, nil, &renamed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "noise cancelling headphones", renamed.Title)

	var grouped models.GroupedConversationsResponse
	rec = s.do(t, http.MethodGet, "/v1/conversations?grouped=true", token, nil, &grouped)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, grouped.Groups, 1)
	assert.Equal(t, "Today", grouped.Groups[0].Label)

	rec = s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", token,
		models.SendMessageRequest{Content: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/conversations/"+conv.ID.String(), token, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID.String(), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMapsAIFailures(t *testing.T) {
	tests := []struct {
		name   string
		kind   error
		status int
	}{
		{"rate limited", ai.ErrRateLimited, http.StatusTooManyRequests},
		{"quota exhausted", ai.ErrQuotaExhausted, http.StatusPaymentRequired},
		{"timeout", ai.ErrTimeout, http.StatusGatewayTimeout},
		{"upstream", ai.ErrUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 0)
			token := tokenFor(t, uuid.New())
			s.ai.failWith(&ai.Error{Op: "chat", Kind: tt.kind})

			var conv models.Conversation
			s.do(t, http.MethodPost, "/v1/conversations", token, nil, &conv)

			rec := s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", token,
				models.SendMessageRequest{Content: "hello"}, nil)
			assert.Equal(t, tt.status, rec.Code)

			var msgs []models.Message
			s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID.String()+"/messages", token, nil, &msgs)
			require.Len(t, msgs, 1, "user message is kept")
			assert.Equal(t, models.RoleUser, msgs[0].Role)
		})
	}
}

func TestConversationOfAnotherUserIsNotFound(t *testing.T) {
	s := newTestServer(t, 0)
	owner, stranger := tokenFor(t, uuid.New()), tokenFor(t, uuid.New())

	var conv models.Conversation
	s.do(t, http.MethodPost, "/v1/conversations", owner, nil, &conv)

	rec := s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID.String()+"/messages", stranger, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", stranger,
		models.SendMessageRequest{Content: "hi"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/conversations/not-a-uuid", owner, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoardsProductsAndSharing(t *testing.T) {
	s := newTestServer(t, 0)
	token := tokenFor(t, uuid.New())

	var board models.Board
	rec := s.do(t, http.MethodPost, "/v1/boards", token, models.CreateBoardRequest{Name: "Study setup"}, &board)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	price := 2499.0
	var product models.Product
	rec = s.do(t, http.MethodPost, "/v1/boards/"+board.ID.String()+"/products", token, models.CreateProductRequest{
		Name:         "Ergonomic Chair",
		CurrentPrice: &price,
		URL:          "https://shop.example.com/chair",
	}, &product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, product.Links, 1)

	var fromURL models.Product
	rec = s.do(t, http.MethodPost, "/v1/boards/"+board.ID.String()+"/products/from-url", token,
		models.CreateProductFromURLRequest{URL: "https://shop.example.com/lamp"}, &fromURL)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Desk Lamp", fromURL.Name)

	var listed []models.Product
	rec = s.do(t, http.MethodGet, "/v1/boards/"+board.ID.String()+"/products", token, nil, &listed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, listed, 2)

	linkPath := "/v1/links/" + product.Links[0].ID.String() + "/prices"
	var entry models.PriceHistory
	rec = s.do(t, http.MethodPost, linkPath, token, models.RecordPriceRequest{Price: 2199}, &entry)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2199.0, entry.Price)

	rec = s.do(t, http.MethodPost, linkPath, token, models.RecordPriceRequest{Price: -1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var history []models.PriceHistory
	rec = s.do(t, http.MethodGet, linkPath, token, nil, &history)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, history, 1)

	var note models.ProductNoteResponse
	rec = s.do(t, http.MethodPost, "/v1/products/"+product.ID.String()+"/ai-note", token, nil, &note)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Solid pick for the price.", note.Note)

	// Private boards are invisible through any token.
	rec = s.do(t, http.MethodGet, "/shared/unknown-token", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var shared models.Board
	rec = s.do(t, http.MethodPut, "/v1/boards/"+board.ID.String()+"/sharing", token, models.BoardSharingRequest{IsPublic: true}, &shared)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, shared.ShareToken)

	var public models.SharedBoardResponse
	rec = s.do(t, http.MethodGet, "/shared/"+*shared.ShareToken, "", nil, &public)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Study setup", public.Board.Name)
	assert.Len(t, public.Products, 2)

	rec = s.do(t, http.MethodGet, "/shared/"+*shared.ShareToken+"/feed.rss", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/rss+xml"))
	assert.Contains(t, rec.Body.String(), "Ergonomic Chair")
	assert.Contains(t, rec.Body.String(), "https://boards.example.com/shared/"+*shared.ShareToken)

	rec = s.do(t, http.MethodPut, "/v1/boards/"+board.ID.String()+"/sharing", token, models.BoardSharingRequest{IsPublic: false}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/shared/"+*shared.ShareToken, "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Boards of other users are forbidden, not hidden.
	rec = s.do(t, http.MethodGet, "/v1/boards/"+board.ID.String(), tokenFor(t, uuid.New()), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/products/"+product.ID.String(), token, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/products/"+product.ID.String(), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertPreferencesHideWebhook(t *testing.T) {
	s := newTestServer(t, 0)
	token := tokenFor(t, uuid.New())

	var prefs models.AlertPreferencesResponse
	rec := s.do(t, http.MethodGet, "/v1/settings/alerts", token, nil, &prefs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.DefaultPriceDropThreshold, prefs.PriceDropThreshold)
	assert.False(t, prefs.SlackWebhookConfigured)

	threshold := 20
	webhook := "https://hooks.slack.com/services/T000/B000/XXXX"
	rec = s.do(t, http.MethodPut, "/v1/settings/alerts", token, models.AlertPreferencesRequest{
		PriceDropThreshold: &threshold,
		SlackWebhookURL:    &webhook,
	}, &prefs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, prefs.PriceDropThreshold)
	assert.True(t, prefs.SlackWebhookConfigured)
	assert.NotContains(t, rec.Body.String(), "hooks.slack.com")

	bad := 0
	rec = s.do(t, http.MethodPut, "/v1/settings/alerts", token, models.AlertPreferencesRequest{PriceDropThreshold: &bad}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIRoutesAreRateLimitedPerUser(t *testing.T) {
	s := newTestServer(t, 1)
	alice, bob := tokenFor(t, uuid.New()), tokenFor(t, uuid.New())
	body := models.AIChatRequest{Messages: []models.AIChatTurn{{Role: "user", Content: "best budget phone?"}}}

	var reply models.AIChatResponse
	rec := s.do(t, http.MethodPost, "/v1/ai/chat", alice, body, &reply)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Try the Sony WH-1000XM4.", reply.Content)
	assert.NotNil(t, reply.Metadata)

	rec = s.do(t, http.MethodPost, "/v1/ai/chat", alice, body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = s.do(t, http.MethodPost, "/v1/ai/chat", bob, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Routes without AI calls are not limited.
	rec = s.do(t, http.MethodGet, "/v1/boards", alice, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConversationStreamDeliversSnapshotThenInserts(t *testing.T) {
	s := newTestServer(t, 0)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	token := tokenFor(t, uuid.New())

	var conv models.Conversation
	s.do(t, http.MethodPost, "/v1/conversations", token, nil, &conv)
	s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", token,
		models.SendMessageRequest{Content: "first question"}, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/conversations/" + conv.ID.String() + "/stream?access_token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot models.StreamEvent
	require.NoError(t, ws.ReadJSON(&snapshot))
	assert.Equal(t, "snapshot", snapshot.Type)
	require.Len(t, snapshot.Messages, 2)

	s.do(t, http.MethodPost, "/v1/conversations/"+conv.ID.String()+"/messages", token,
		models.SendMessageRequest{Content: "follow up"}, nil)

	var got []models.Message
	for len(got) < 2 {
		var event models.StreamEvent
		require.NoError(t, ws.ReadJSON(&event))
		require.Equal(t, "message", event.Type)
		require.NotNil(t, event.Message)
		got = append(got, *event.Message)
	}
	assert.Equal(t, "follow up", got[0].Content)
	assert.Equal(t, models.RoleAssistant, got[1].Role)
}

func TestStreamRejectsForeignConversationBeforeUpgrade(t *testing.T) {
	s := newTestServer(t, 0)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	var conv models.Conversation
	s.do(t, http.MethodPost, "/v1/conversations", tokenFor(t, uuid.New()), nil, &conv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/conversations/" + conv.ID.String() +
		"/stream?access_token=" + tokenFor(t, uuid.New())
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
