package main

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
	"verdant.io/feed/reels"
	sn "verdant.io/feed/session"
	st "verdant.io/feed/stores"
)

type mockTransport struct{ mock.Mock }

func (m *mockTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	args := m.Called(r)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func newTestServer(rt http.RoundTripper) *feedServer {
	mem := kv.NewMemStore()
	posts := &st.KVPostStore{KV: mem}
	mgr := sn.NewManager(mem)
	if err := mgr.Hydrate(); err != nil {
		panic(err)
	}
	svr := &feedServer{
		Users:     &st.KVUserStore{KV: mem},
		Posts:     posts,
		Bookmarks: &st.KVBookmarkStore{KV: mem, Posts: posts},
		Settings:  &st.KVSettingsStore{KV: mem},
		Session:   mgr,
		Cookies:   sn.NewKVStore(mem, []byte("test-session-key")),
		Reels:     reels.NewClient(&reels.Config{URL: "https://media.example/reels.json", RT: rt}),
	}
	svr.SetupMux()
	return svr
}

func doJSON(svr http.Handler, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	wrec := httptest.NewRecorder()
	svr.ServeHTTP(wrec, req)
	return wrec
}

func decodeInto(t *testing.T, wrec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.Nil(t, json.Unmarshal(wrec.Body.Bytes(), v), "response body should be valid JSON")
}

// register signs up a fresh user and returns the session cookies.
func register(t *testing.T, svr *feedServer) []*http.Cookie {
	t.Helper()
	wrec := doJSON(svr, http.MethodPost, "/register", map[string]string{
		"name":     "Jo Doe",
		"email":    "jo@example.com",
		"password": "secret1",
	}, nil)
	assert.Equal(t, http.StatusCreated, wrec.Code, "registration should succeed")
	return wrec.Result().Cookies()
}

func TestHandleAuthRegister(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)
	assert.NotEmpty(t, cookies, "registration should establish a session cookie")
	if assert.NotNil(t, svr.Session.Current()) {
		assert.Equal(t, "jo@example.com", svr.Session.Current().Email)
	}

	// duplicate email: nothing appended, no session established
	wrec := doJSON(svr, http.MethodPost, "/register", map[string]string{
		"name":     "Impostor",
		"email":    "jo@example.com",
		"password": "hijack1",
	}, nil)
	assert.Equal(t, http.StatusConflict, wrec.Code)
	assert.Empty(t, wrec.Result().Cookies(), "rejected registration must not set a session cookie")
	assert.Equal(t, "Jo Doe", svr.Session.Current().Name, "session user must be unchanged")
}

func TestHandleAuthLoginLogout(t *testing.T) {
	svr := newTestServer(nil)
	register(t, svr)
	// drop the session established by registration
	assert.Nil(t, svr.Session.Logout())

	wrec := doJSON(svr, http.MethodPost, "/login", map[string]string{
		"email":    "jo@example.com",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusNotFound, wrec.Code, "bad credentials are rejected")
	assert.Nil(t, svr.Session.Current())

	wrec = doJSON(svr, http.MethodPost, "/login", map[string]string{
		"email":    "jo@example.com",
		"password": "secret1",
	}, nil)
	assert.Equal(t, http.StatusOK, wrec.Code)
	cookies := wrec.Result().Cookies()
	assert.NotEmpty(t, cookies)

	var u md.User
	decodeInto(t, wrec, &u)
	assert.Empty(t, u.Password, "password must never leave the data layer")

	wrec = doJSON(svr, http.MethodPost, "/logout", nil, cookies)
	assert.Equal(t, http.StatusNoContent, wrec.Code)
	assert.Nil(t, svr.Session.Current())

	// the old cookie no longer authenticates
	wrec = doJSON(svr, http.MethodGet, "/posts", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, wrec.Code)
}

func TestGuardedRouteRequiresLogin(t *testing.T) {
	svr := newTestServer(nil)
	wrec := doJSON(svr, http.MethodGet, "/posts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, wrec.Code)

	body := map[string]string{}
	decodeInto(t, wrec, &body)
	assert.Equal(t, "/login", body["redirect"], "unauthenticated requests are pointed at login")
}

func TestEmptyFeedReachable(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodGet, "/posts", nil, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	views := []postView{}
	decodeInto(t, wrec, &views)
	assert.Empty(t, views, "fresh storage renders the empty feed state")
}

func TestPostLifecycle(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "hello"}, cookies)
	assert.Equal(t, http.StatusCreated, wrec.Code)
	var created postView
	decodeInto(t, wrec, &created)
	assert.Equal(t, "hello", created.Content)
	assert.Equal(t, "Jo Doe", created.Author.Name)

	wrec = doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "world"}, cookies)
	assert.Equal(t, http.StatusCreated, wrec.Code)
	var other postView
	decodeInto(t, wrec, &other)

	// empty submission is rejected with no partial write
	wrec = doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "  "}, cookies)
	assert.Equal(t, http.StatusBadRequest, wrec.Code)

	wrec = doJSON(svr, http.MethodPut, "/posts/"+created.ID, map[string]string{"content": "hello again"}, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)

	// editing a missing id never creates a record
	wrec = doJSON(svr, http.MethodPut, "/posts/ghost", map[string]string{"content": "x"}, cookies)
	assert.Equal(t, http.StatusNotFound, wrec.Code)

	wrec = doJSON(svr, http.MethodDelete, "/posts/"+other.ID, nil, cookies)
	assert.Equal(t, http.StatusNoContent, wrec.Code)

	wrec = doJSON(svr, http.MethodGet, "/posts", nil, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	views := []postView{}
	decodeInto(t, wrec, &views)
	if assert.Len(t, views, 1) {
		assert.Equal(t, created.ID, views[0].ID)
		assert.Equal(t, "hello again", views[0].Content)
	}
}

func TestLikeToggleEndpoint(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "hello"}, cookies)
	var created postView
	decodeInto(t, wrec, &created)

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/like", nil, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	var liked postView
	decodeInto(t, wrec, &liked)
	assert.Equal(t, 1, liked.LikeCount)

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/like", nil, cookies)
	var unliked postView
	decodeInto(t, wrec, &unliked)
	assert.Equal(t, 0, unliked.LikeCount, "like pair must restore the original count")
}

func TestBookmarkFlow(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "save me"}, cookies)
	var created postView
	decodeInto(t, wrec, &created)

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/bookmark", nil, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	state := map[string]bool{}
	decodeInto(t, wrec, &state)
	assert.True(t, state["bookmarked"])

	// the derived per-post view agrees with the index
	wrec = doJSON(svr, http.MethodGet, "/posts", nil, cookies)
	views := []postView{}
	decodeInto(t, wrec, &views)
	if assert.Len(t, views, 1) {
		assert.True(t, views[0].Bookmarked)
	}

	wrec = doJSON(svr, http.MethodGet, "/bookmarks", nil, cookies)
	saved := []postView{}
	decodeInto(t, wrec, &saved)
	if assert.Len(t, saved, 1) {
		assert.Equal(t, created.ID, saved[0].ID)
	}

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/bookmark", nil, cookies)
	decodeInto(t, wrec, &state)
	assert.False(t, state["bookmarked"])

	wrec = doJSON(svr, http.MethodGet, "/bookmarks", nil, cookies)
	saved = []postView{}
	decodeInto(t, wrec, &saved)
	assert.Empty(t, saved)
}

func TestCommentEndpoint(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodPost, "/posts", map[string]string{"content": "hello"}, cookies)
	var created postView
	decodeInto(t, wrec, &created)

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/comments", map[string]string{"text": "nice"}, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	var commented postView
	decodeInto(t, wrec, &commented)
	if assert.Len(t, commented.Comments, 1) {
		assert.Equal(t, "nice", commented.Comments[0].Text)
		assert.Equal(t, "Jo Doe", commented.Comments[0].Author)
	}

	wrec = doJSON(svr, http.MethodPost, "/posts/"+created.ID+"/comments", map[string]string{"text": "  "}, cookies)
	assert.Equal(t, http.StatusBadRequest, wrec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodGet, "/settings", nil, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)
	var got md.Settings
	decodeInto(t, wrec, &got)
	assert.Equal(t, md.DefaultSettings(), got)

	got.Theme = "dark"
	wrec = doJSON(svr, http.MethodPut, "/settings", got, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)

	wrec = doJSON(svr, http.MethodGet, "/settings", nil, cookies)
	var reloaded md.Settings
	decodeInto(t, wrec, &reloaded)
	assert.Equal(t, "dark", reloaded.Theme)
}

func TestProfileEndpoints(t *testing.T) {
	svr := newTestServer(nil)
	cookies := register(t, svr)

	wrec := doJSON(svr, http.MethodPut, "/profile", map[string]string{
		"name": "Jo D.", "bio": "hi", "location": "city", "website": "https://jo.example",
	}, cookies)
	assert.Equal(t, http.StatusOK, wrec.Code)

	wrec = doJSON(svr, http.MethodGet, "/profile", nil, cookies)
	var u md.User
	decodeInto(t, wrec, &u)
	assert.Equal(t, "Jo D.", u.Name)
	assert.Equal(t, "hi", u.Bio)
	assert.Equal(t, "jo@example.com", u.Email)
	assert.Empty(t, u.Password)
}

func TestReelsEndpoint(t *testing.T) {
	tcs := []struct {
		name         string
		resp         *http.Response
		expectedCode int
	}{
		{
			name: "HappyCase",
			resp: &http.Response{
				StatusCode: http.StatusOK,
				Body:       ioutil.NopCloser(bytes.NewReader([]byte(`[{"id":"r1","video":"v","author":{"id":"a","name":"Ann"},"likes":1,"comments":0,"timestamp":"t"}]`))),
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "UpstreamServerError",
			resp: &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       ioutil.NopCloser(bytes.NewReader([]byte(`{}`))),
			},
			expectedCode: http.StatusBadGateway,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			rt := &mockTransport{}
			rt.On("RoundTrip", mock.Anything).Return(c.resp, nil)
			svr := newTestServer(rt)
			cookies := register(t, svr)

			wrec := doJSON(svr, http.MethodGet, "/reels", nil, cookies)
			assert.Equal(t, c.expectedCode, wrec.Code)
			if c.expectedCode == http.StatusOK {
				rs := []md.Reel{}
				decodeInto(t, wrec, &rs)
				assert.Len(t, rs, 1)
			} else {
				body := map[string]string{}
				decodeInto(t, wrec, &body)
				assert.NotEmpty(t, body["error"], "failure must surface as an error view")
			}
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	svr := newTestServer(nil)
	wrec := doJSON(svr, http.MethodGet, "/no/such/page", nil, nil)
	assert.Equal(t, http.StatusNotFound, wrec.Code)
}
