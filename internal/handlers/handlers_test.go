package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/chat"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/events"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/profiles"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/projects"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/ratings"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/users"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/verification"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/testutil"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	hub *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	us := users.NewUserService(gdb, rdb, mailer.LogMailer{}, events.Nop{}, testSecret, 15, time.Hour)
	ds := profiles.NewDeveloperService(gdb)
	convs := chat.NewConversationService(gdb)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(app, Handlers{
		Health:       &HealthHandler{DB: gdb, RDB: rdb},
		Users:        NewUserHandler(us, ds, false),
		Google:       NewGoogleOAuthHandler(us, "id", "secret", "http://localhost/cb", "http://localhost:3000", false),
		Verification: NewVerificationHandler(verification.NewVerificationService(gdb, mailer.LogMailer{})),
		Developers:   NewDeveloperHandler(ds),
		Clients:      NewClientHandler(profiles.NewClientService(gdb)),
		Projects:     NewProjectHandler(projects.NewProjectService(gdb, events.Nop{})),
		Ratings:      NewRatingHandler(ratings.NewRatingService(gdb, events.Nop{})),
		Chat:         NewChatHandler(chat.NewMessageService(gdb, convs, hub), convs, hub, testSecret),
	}, testSecret)

	return &testEnv{app: app, db: gdb, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp, env
}

// signup registers and logs in, returning the user and an access token.
func (e *testEnv) signup(t *testing.T, email, role string) (models.User, string) {
	t.Helper()
	resp, env := e.do(t, "POST", "/api/users/register", fiber.Map{
		"first_name": "Test",
		"last_name":  "User",
		"email":      email,
		"password":   "secret123",
		"role":       role,
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	var u models.User
	require.NoError(t, json.Unmarshal(env.Data, &u))

	resp, env = e.do(t, "POST", "/api/users/login", fiber.Map{"email": email, "password": "secret123"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var res users.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return u, res.Tokens.AccessToken
}

func TestRegisterLoginAndRefresh(t *testing.T) {
	e := newTestEnv(t)

	u, token := e.signup(t, "client@example.com", "client")
	assert.Equal(t, models.RoleClient, u.Role)
	require.NotNil(t, u.Client)
	assert.NotEmpty(t, token)

	resp, env := e.do(t, "POST", "/api/users/register", fiber.Map{
		"first_name": "Again", "last_name": "User", "email": "client@example.com", "password": "secret123",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Email already registered", env.Message)

	resp, env = e.do(t, "POST", "/api/users/login", fiber.Map{"email": "client@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", env.Message)

	resp, env = e.do(t, "POST", "/api/users/login", fiber.Map{"email": "client@example.com", "password": "secret123"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "jm_token=")
	var res users.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))

	resp, _ = e.do(t, "POST", "/api/users/refresh", fiber.Map{"refresh_token": res.Tokens.RefreshToken}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, "POST", "/api/users/refresh", fiber.Map{"refresh_token": res.Tokens.RefreshToken}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, env = e.do(t, "GET", "/api/users/exists/client@example.com", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "true", string(env.Data))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, "GET", "/api/projects/all", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = e.do(t, "GET", "/api/users/", nil, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserSelfManagement(t *testing.T) {
	e := newTestEnv(t)
	alice, aliceTok := e.signup(t, "alice@example.com", "client")
	bob, _ := e.signup(t, "bob@example.com", "developer")

	resp, env := e.do(t, "PATCH", "/api/users/"+alice.ID.String()+"/status?status=ONLINE", nil, aliceTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	resp, env = e.do(t, "GET", "/api/users/"+alice.ID.String(), nil, aliceTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, models.StatusOnline, got.Status)

	resp, _ = e.do(t, "PATCH", "/api/users/"+alice.ID.String()+"/status?status=away", nil, aliceTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "PUT", "/api/users/"+bob.ID.String(), fiber.Map{"first_name": "Mallory"}, aliceTok)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, "PATCH", "/api/users/"+bob.ID.String()+"/activate", nil, aliceTok)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = e.do(t, "POST", "/api/users/"+alice.ID.String()+"/change-password",
		fiber.Map{"current_password": "nope", "new_password": "another1"}, aliceTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Current password is incorrect", env.Message)

	resp, _ = e.do(t, "GET", "/api/users/not-a-uuid", nil, aliceTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProjectClaimOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	_, clientTok := e.signup(t, "client@example.com", "client")
	_, devTok := e.signup(t, "dev@example.com", "developer")
	_, otherDevTok := e.signup(t, "dev2@example.com", "developer")

	resp, _ := e.do(t, "POST", "/api/projects/create", fiber.Map{"project_name": "Nope"}, devTok)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env := e.do(t, "POST", "/api/projects/create", fiber.Map{
		"project_name":   "Marketplace API",
		"description":    "REST backend",
		"project_budget": 1500,
	}, clientTok)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var p models.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, models.ProjectPending, p.Status)
	assert.Nil(t, p.DevID)

	resp, env = e.do(t, "POST", "/api/projects/"+p.ID.String()+"/claim", nil, devTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, models.ProjectInProgress, p.Status)
	assert.NotNil(t, p.DevID)

	resp, env = e.do(t, "POST", "/api/projects/"+p.ID.String()+"/claim", nil, otherDevTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Project is not available for claiming. Current status: IN_PROGRESS", env.Message)

	resp, env = e.do(t, "PUT", "/api/projects/"+p.ID.String()+"/status", fiber.Map{"status": "DONE"}, clientTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, projects.InvalidStatusMessage, env.Message)

	resp, env = e.do(t, "GET", "/api/projects/developer/my-developer-projects", nil, devTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []models.Project
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 1)

	resp, env = e.do(t, "GET", "/api/projects/pending", nil, clientTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(env.Data))

	resp, env = e.do(t, "PATCH", "/api/projects/"+p.ID.String()+"/complete", nil, devTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	resp, _ = e.do(t, "GET", "/api/projects/"+"00000000-0000-0000-0000-000000000001", nil, clientTok)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRatingsOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	client, clientTok := e.signup(t, "client@example.com", "client")
	dev, _ := e.signup(t, "dev@example.com", "developer")
	require.NotNil(t, dev.Developer)

	path := "/api/ratings/developer/" + dev.Developer.ID.String() + "/average"
	resp, env := e.do(t, "GET", path, nil, clientTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"average_rating":0,"total_ratings":0}`, string(env.Data))

	resp, env = e.do(t, "POST", "/api/ratings/create", fiber.Map{
		"client_id": client.Client.ID, "developer_id": dev.Developer.ID, "rating": 6,
	}, clientTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Rating must be between 1 and 5", env.Message)

	for _, score := range []int{4, 5} {
		resp, env = e.do(t, "POST", "/api/ratings/create", fiber.Map{
			"client_id": client.Client.ID, "developer_id": dev.Developer.ID, "rating": score,
		}, clientTok)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	}

	_, otherTok := e.signup(t, "other@example.com", "client")
	resp, _ = e.do(t, "POST", "/api/ratings/create", fiber.Map{
		"client_id": client.Client.ID, "developer_id": dev.Developer.ID, "rating": 1,
	}, otherTok)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	_, env = e.do(t, "GET", path, nil, clientTok)
	assert.JSONEq(t, `{"average_rating":4.5,"total_ratings":2}`, string(env.Data))
}

func TestMessagingOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	alice, aliceTok := e.signup(t, "alice@example.com", "client")
	bob, bobTok := e.signup(t, "bob@example.com", "developer")

	resp, env := e.do(t, "POST", "/api/messages", fiber.Map{"receiver_id": bob.ID, "text": "hi bob"}, aliceTok)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var msg chat.MessageDTO
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, bob.ID, msg.ReceiverID)
	assert.Equal(t, "sent", msg.Status)

	resp, env = e.do(t, "GET", "/api/conversations/unread-count", nil, bobTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"unread_count":1}`, string(env.Data))

	resp, env = e.do(t, "PATCH", "/api/messages/"+msg.ID.String()+"/delivered", nil, bobTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var delivered chat.MessageDTO
	require.NoError(t, json.Unmarshal(env.Data, &delivered))
	assert.Equal(t, "delivered", delivered.Status)

	resp, env = e.do(t, "GET", "/api/conversations", nil, bobTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var summaries []chat.ChatSummary
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, alice.ID, summaries[0].OtherUserID)
	assert.EqualValues(t, 1, summaries[0].UnreadCount)

	resp, env = e.do(t, "PATCH", "/api/conversations/"+msg.ConversationID.String()+"/read", nil, bobTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	resp, env = e.do(t, "GET", "/api/messages/with/"+alice.ID.String(), nil, bobTok)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []chat.MessageDTO
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "read", history[0].Status)
	assert.Equal(t, bob.ID, history[0].ReceiverID)

	_, outsiderTok := e.signup(t, "eve@example.com", "developer")
	resp, env = e.do(t, "GET", "/api/conversations/"+msg.ConversationID.String()+"/messages", nil, outsiderTok)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access denied: User is not a participant in this conversation", env.Message)

	resp, _ = e.do(t, "POST", "/api/messages", fiber.Map{"receiver_id": bob.ID, "text": ""}, aliceTok)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketRequiresToken(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("GET", "/ws?token=bad", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = e.app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, "GET", "/health", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}
