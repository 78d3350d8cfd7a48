package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"chathub/auth"
	"chathub/domain"
	"chathub/observability"
	"chathub/repositories"
	"chathub/runtime/workers"
	"chathub/search"
	"chathub/services"
)

const testPassword = "Sup3rC0mplex!Passw0rd"

type restFixture struct {
	srv      *httptest.Server
	users    *repositories.UserRepository
	chats    *repositories.ChatRepository
	messages *services.MessageService
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	index := search.NewMessageIndex(writer, log)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	envelopes := make(chan workers.Envelope, 64)

	issuer := auth.NewTokenIssuer("rest-test-secret", 15*time.Minute, 7*24*time.Hour)
	gatekeeper := auth.NewGatekeeper(issuer, users)
	messageService := services.NewMessageService(log, messages, chats, users, index, nil,
		envelopes, metrics, 0)
	router := NewRouter(RouterDeps{
		Log:        log,
		Gatekeeper: gatekeeper,
		Auth:       services.NewAuthService(log, users, issuer),
		Chats:      services.NewChatService(log, chats, users),
		Messages:   messageService,
		AccessTTL:  15 * time.Minute,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &restFixture{srv: srv, users: users, chats: chats, messages: messageService}
}

func (f *restFixture) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	resp, err := f.srv.Client().Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// register creates an account through the public endpoint and returns the
// created user plus the session cookies.
func (f *restFixture) register(t *testing.T, name, email string) (domain.Snapshot, []*http.Cookie) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		User domain.Snapshot `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.User, resp.Cookies()
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestRouter_Healthz(t *testing.T) {
	f := newRESTFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Register_Sets_Session_Cookies(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)

	user, cookies := f.register(t, "Alice", "Alice@Example.com")
	req.NotEmpty(user.ID)
	req.Equal("Alice", user.Name)

	access := cookieNamed(cookies, auth.AccessCookieName)
	refresh := cookieNamed(cookies, auth.RefreshCookieName)
	req.NotNil(access)
	req.NotNil(refresh)
	req.True(access.HttpOnly)
	req.NotEmpty(access.Value)

	stored, err := f.users.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(user.ID, stored.ID)
}

func TestRouter_Register_Rejects_Weak_Password(t *testing.T) {
	f := newRESTFixture(t)
	resp := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "BAD_REQUEST", decodeError(t, resp))
}

func TestRouter_Login(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	f.register(t, "Alice", "alice@example.com")

	resp := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": testPassword,
	}, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NotNil(cookieNamed(resp.Cookies(), auth.AccessCookieName))

	resp = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Wr0ng!Passw0rd-Value",
	}, nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Refresh_Mints_New_Access_Token(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	_, cookies := f.register(t, "Alice", "alice@example.com")

	refresh := cookieNamed(cookies, auth.RefreshCookieName)
	resp := f.do(t, http.MethodPost, "/auth/refresh", nil, []*http.Cookie{refresh})
	req.Equal(http.StatusOK, resp.StatusCode)
	access := cookieNamed(resp.Cookies(), auth.AccessCookieName)
	req.NotNil(access)
	req.NotEmpty(access.Value)

	resp = f.do(t, http.MethodPost, "/auth/refresh", nil, nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Logout_Clears_Cookies(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	_, cookies := f.register(t, "Alice", "alice@example.com")

	resp := f.do(t, http.MethodPost, "/auth/logout", nil, cookies)
	req.Equal(http.StatusNoContent, resp.StatusCode)
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		cleared := cookieNamed(resp.Cookies(), name)
		req.NotNil(cleared)
		req.Empty(cleared.Value)
		req.Negative(cleared.MaxAge)
	}
}

func TestRouter_Requires_Auth(t *testing.T) {
	f := newRESTFixture(t)
	for _, path := range []string{"/chats", "/messages?chatId=x"} {
		resp := f.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestRouter_Create_Chat_Includes_Caller(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	alice, cookies := f.register(t, "Alice", "alice@example.com")
	bob, _ := f.register(t, "Bob", "bob@example.com")

	resp := f.do(t, http.MethodPost, "/chats", map[string]any{
		"users": []string{bob.ID},
	}, cookies)
	req.Equal(http.StatusCreated, resp.StatusCode)

	var chat domain.Chat
	req.NoError(json.NewDecoder(resp.Body).Decode(&chat))
	req.ElementsMatch([]string{alice.ID, bob.ID}, chat.Users)
}

func TestRouter_List_Chats(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	alice, cookies := f.register(t, "Alice", "alice@example.com")
	bob, _ := f.register(t, "Bob", "bob@example.com")

	_, err := f.chats.CreateChat(domain.Chat{Users: []string{alice.ID, bob.ID}})
	req.NoError(err)

	resp := f.do(t, http.MethodGet, "/chats", nil, cookies)
	req.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Chats      []domain.Chat `json:"chats"`
		TotalItems int           `json:"totalItems"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal(1, body.TotalItems)
	req.Len(body.Chats, 1)

	// The userId parameter only works for the caller's own id.
	resp = f.do(t, http.MethodGet, "/chats?userId="+bob.ID, nil, cookies)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestRouter_Get_Chat_Checks_Membership(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	alice, aliceCookies := f.register(t, "Alice", "alice@example.com")
	bob, _ := f.register(t, "Bob", "bob@example.com")
	_, malloryCookies := f.register(t, "Mallory", "mallory@example.com")

	chat, err := f.chats.CreateChat(domain.Chat{Users: []string{alice.ID, bob.ID}})
	req.NoError(err)

	resp := f.do(t, http.MethodGet, "/chats/"+chat.ID, nil, aliceCookies)
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/chats/"+chat.ID, nil, malloryCookies)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	req.Equal("FORBIDDEN", decodeError(t, resp))
}

func TestRouter_List_Messages(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	alice, cookies := f.register(t, "Alice", "alice@example.com")
	bob, _ := f.register(t, "Bob", "bob@example.com")
	_, malloryCookies := f.register(t, "Mallory", "mallory@example.com")

	chat, err := f.chats.CreateChat(domain.Chat{Users: []string{alice.ID, bob.ID}})
	req.NoError(err)

	aliceUser, err := f.users.GetUser(alice.ID)
	req.NoError(err)
	for _, content := range []string{"first", "second", "third"} {
		_, err := f.messages.Send(context.Background(), aliceUser, services.SendMessageRequest{
			ChatID:  chat.ID,
			Content: content,
		})
		req.NoError(err)
	}

	resp := f.do(t, http.MethodGet, "/messages", nil, cookies)
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/messages?chatId="+chat.ID, nil, malloryCookies)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/messages?chatId="+chat.ID+"&limit=2", nil, cookies)
	req.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Messages   []json.RawMessage `json:"messages"`
		TotalItems int               `json:"totalItems"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal(3, body.TotalItems)
	req.Len(body.Messages, 2)
}

func TestRouter_List_Messages_Field_Projection(t *testing.T) {
	req := require.New(t)
	f := newRESTFixture(t)
	alice, cookies := f.register(t, "Alice", "alice@example.com")
	bob, _ := f.register(t, "Bob", "bob@example.com")

	chat, err := f.chats.CreateChat(domain.Chat{Users: []string{alice.ID, bob.ID}})
	req.NoError(err)
	aliceUser, err := f.users.GetUser(alice.ID)
	req.NoError(err)
	_, err = f.messages.Send(context.Background(), aliceUser, services.SendMessageRequest{
		ChatID:  chat.ID,
		Content: "projected",
	})
	req.NoError(err)

	resp := f.do(t, http.MethodGet, "/messages?chatId="+chat.ID+"&fields=content", nil, cookies)
	req.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Messages []map[string]json.RawMessage `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Len(body.Messages, 1)

	// Only the requested field plus id survive.
	msg := body.Messages[0]
	req.Len(msg, 2)
	req.Contains(msg, "id")
	req.JSONEq(`"projected"`, string(msg["content"]))
}
