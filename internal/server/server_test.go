package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cookbook/internal/config"
	"cookbook/internal/media"
	"cookbook/internal/models"
	"cookbook/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

type testEnv struct {
	app      *fiber.App
	tables   *testutil.Tables
	identity *testutil.IdentityStub
	media    *testutil.MediaStub
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		AllowedOrigins:       "http://localhost:5173",
		ImageMaxUploadSizeMB: 1,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tables := testutil.NewTables(t)
	ids := testutil.NewIdentityStub()
	uploader := testutil.NewMediaStub()
	return newTestEnvWith(t, tables, ids, uploader, uploader)
}

func newTestEnvWith(t *testing.T, tables *testutil.Tables, ids *testutil.IdentityStub, uploader media.Uploader, stub *testutil.MediaStub) *testEnv {
	t.Helper()
	s, err := NewServerWithDeps(testConfig(), &Backends{
		Users:      tables.Users,
		Posts:      tables.Posts,
		Categories: tables.Categories,
		Comments:   tables.Comments,
		Identity:   ids,
		Verifier:   ids,
		Media:      uploader,
	})
	require.NoError(t, err)
	return &testEnv{app: s.NewApp(), tables: tables, identity: ids, media: stub}
}

type request struct {
	method string
	path   string
	as     string
	json   any
	form   map[string]string
	image  []byte
}

func (e *testEnv) do(t *testing.T, r request) (int, []byte) {
	t.Helper()
	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil || r.image != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range r.form {
			require.NoError(t, w.WriteField(k, v))
		}
		if r.image != nil {
			part, err := w.CreateFormFile("image", "dish.png")
			require.NoError(t, err)
			_, err = part.Write(r.image)
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		body, contentType = &buf, w.FormDataContentType()
	case r.json != nil:
		raw, err := json.Marshal(r.json)
		require.NoError(t, err)
		body, contentType = bytes.NewReader(raw), fiber.MIMEApplicationJSON
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if r.as != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+testutil.TokenFor(r.as))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *testEnv) signUp(t *testing.T, email string) {
	t.Helper()
	status, raw := e.do(t, request{method: http.MethodPost, path: "/user", json: fiber.Map{
		"userName": strings.Split(email, "@")[0],
		"email":    email,
		"password": "Sup3r$ecret",
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
}

func (e *testEnv) createPost(t *testing.T, as, category string) models.Post {
	t.Helper()
	status, raw := e.do(t, request{method: http.MethodPost, path: "/post", as: as, image: pngBytes, form: map[string]string{
		"title":       "Pancakes",
		"category":    category,
		"ingredients": "flour, eggs, milk",
		"recipe":      "Mix and fry",
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[models.Post](t, raw)
}

func TestRootAndFallback(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, request{method: http.MethodGet, path: "/"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Banner, decode[map[string]string](t, raw)["message"])

	for _, r := range []request{
		{method: http.MethodGet, path: "/nope"},
		{method: http.MethodPut, path: "/post"},
		{method: http.MethodDelete, path: "/category/Category-1"},
		{method: http.MethodGet, path: "/user/a/b/c"},
	} {
		status, raw := env.do(t, r)
		assert.Equal(t, http.StatusNotFound, status, "%s %s", r.method, r.path)
		assert.Equal(t, map[string]string{"error": "Not Found"}, decode[map[string]string](t, raw))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, request{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", decode[map[string]any](t, raw)["status"])

	status, raw = env.do(t, request{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusOK, status)
	body := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["redis"])
}

func TestSignUpAndLogin(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, request{method: http.MethodPost, path: "/user", json: fiber.Map{
		"userName": "alice", "email": "Alice@Example.com", "password": "Sup3r$ecret",
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[TokenResponse](t, raw)
	assert.Equal(t, "Successfully created new user", created.Message)
	assert.Equal(t, "Bearer "+testutil.TokenFor(alice), created.AccessToken)

	status, raw = env.do(t, request{method: http.MethodPost, path: "/auth", json: fiber.Map{"email": alice, "password": "Sup3r$ecret"}})
	require.Equal(t, http.StatusOK, status, string(raw))
	login := decode[TokenResponse](t, raw)
	assert.Equal(t, "Successfully logged in", login.Message)
	assert.True(t, strings.HasPrefix(login.AccessToken, "Bearer "))

	status, _ = env.do(t, request{method: http.MethodPost, path: "/auth", json: fiber.Map{"email": alice, "password": "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, request{method: http.MethodPost, path: "/user", json: fiber.Map{
		"userName": "again", "email": alice, "password": "Sup3r$ecret",
	}})
	assert.Equal(t, http.StatusConflict, status)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/user/current-user/me", as: alice})
	require.Equal(t, http.StatusOK, status)
	me := decode[models.User](t, raw)
	assert.Equal(t, "User-"+alice, me.UserID)
	assert.Equal(t, "alice", me.UserName)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/user/" + url.PathEscape(me.UserID)})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = env.do(t, request{method: http.MethodGet, path: "/user"})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.User](t, raw), 1)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)

	tests := []struct {
		name   string
		req    request
		fields []string
	}{
		{
			name:   "sign-up",
			req:    request{method: http.MethodPost, path: "/user", json: fiber.Map{"userName": " ", "email": "not-an-email", "password": "short"}},
			fields: []string{"userName", "email", "password"},
		},
		{
			name:   "login",
			req:    request{method: http.MethodPost, path: "/auth", json: fiber.Map{"email": "x"}},
			fields: []string{"email", "password"},
		},
		{
			name:   "category",
			req:    request{method: http.MethodPost, path: "/category", as: alice, json: fiber.Map{"title": "   "}},
			fields: []string{"title"},
		},
		{
			name:   "comment",
			req:    request{method: http.MethodPost, path: "/comment", as: alice, json: fiber.Map{}},
			fields: []string{"postId", "text"},
		},
		{
			name:   "post without image",
			req:    request{method: http.MethodPost, path: "/post", as: alice, form: map[string]string{"title": "t", "category": "c", "ingredients": "i", "recipe": "r"}},
			fields: []string{"image"},
		},
		{
			name:   "post with text file",
			req:    request{method: http.MethodPost, path: "/post", as: alice, image: []byte("plain text pretending to be an image"), form: map[string]string{"title": "t", "category": "c", "ingredients": "i", "recipe": "r"}},
			fields: []string{"image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := env.do(t, tt.req)
			require.Equal(t, http.StatusBadRequest, status, string(raw))
			resp := decode[models.ErrorResponse](t, raw)
			assert.Equal(t, models.CodeValidation, resp.Code)
			var got []string
			for _, f := range resp.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
	assert.Zero(t, env.media.Count())
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t)

	for _, r := range []request{
		{method: http.MethodGet, path: "/user/current-user/me"},
		{method: http.MethodGet, path: "/post/current-user/me"},
		{method: http.MethodPost, path: "/post"},
		{method: http.MethodPatch, path: "/post/Post-1"},
		{method: http.MethodDelete, path: "/post/Post-1"},
		{method: http.MethodPost, path: "/category"},
		{method: http.MethodPost, path: "/comment"},
		{method: http.MethodDelete, path: "/comment/Comment-1"},
		{method: http.MethodPatch, path: "/user/User-" + alice},
	} {
		status, _ := env.do(t, r)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", r.method, r.path)
	}
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)
	env.signUp(t, bob)

	post := env.createPost(t, alice, "Category-breakfast")
	assert.Equal(t, "User-"+alice, post.Author)
	assert.Equal(t, 1, env.media.Count())

	status, raw := env.do(t, request{method: http.MethodGet, path: "/post/" + post.PostID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pancakes", decode[models.Post](t, raw).Title)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/post/current-user/me", as: alice})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/post/current-user/me", as: bob})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, raw = env.do(t, request{method: http.MethodGet, path: "/post/category/Category-breakfast"})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/post/user/" + url.PathEscape("User-"+alice)})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	// someone else cannot touch it
	status, _ = env.do(t, request{method: http.MethodPatch, path: "/post/" + post.PostID, as: bob, json: fiber.Map{"title": "Mine now"}})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, request{method: http.MethodDelete, path: "/post/" + post.PostID, as: bob})
	assert.Equal(t, http.StatusForbidden, status)

	// blank fields are ignored, present ones applied
	status, raw = env.do(t, request{method: http.MethodPatch, path: "/post/" + post.PostID, as: alice, json: fiber.Map{"title": "Fluffy pancakes", "recipe": "  "}})
	require.Equal(t, http.StatusOK, status, string(raw))
	updated := decode[models.Post](t, raw)
	assert.Equal(t, "Fluffy pancakes", updated.Title)
	assert.Equal(t, "Mix and fry", updated.Recipe)

	status, _ = env.do(t, request{method: http.MethodPatch, path: "/post/" + post.PostID, as: alice, json: fiber.Map{"title": " "}})
	assert.Equal(t, http.StatusBadRequest, status)

	// replacing the image destroys the old one
	status, raw = env.do(t, request{method: http.MethodPatch, path: "/post/" + post.PostID, as: alice, image: pngBytes})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.NotEqual(t, post.ImageID, decode[models.Post](t, raw).ImageID)
	assert.Contains(t, env.media.Destroyed, post.ImageID)
	assert.Equal(t, 1, env.media.Count())

	status, _ = env.do(t, request{method: http.MethodGet, path: "/post/Post-missing"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, request{method: http.MethodPatch, path: "/post/Post-missing", as: alice, json: fiber.Map{"title": "x"}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeletePostCascadesComments(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)
	env.signUp(t, bob)

	doomed := env.createPost(t, alice, "Category-a")
	kept := env.createPost(t, alice, "Category-a")

	for _, postID := range []string{doomed.PostID, doomed.PostID, doomed.PostID, kept.PostID} {
		status, raw := env.do(t, request{method: http.MethodPost, path: "/comment", as: bob, json: fiber.Map{"postId": postID, "text": "Yum"}})
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, raw := env.do(t, request{method: http.MethodGet, path: "/comment/" + doomed.PostID})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Comment](t, raw), 3)

	status, raw = env.do(t, request{method: http.MethodDelete, path: "/post/" + doomed.PostID, as: alice})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, _ = env.do(t, request{method: http.MethodGet, path: "/post/" + doomed.PostID})
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/comment/" + doomed.PostID})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, raw = env.do(t, request{method: http.MethodGet, path: "/comment/" + kept.PostID})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Comment](t, raw), 1)

	assert.Contains(t, env.media.Destroyed, doomed.ImageID)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)
	env.signUp(t, bob)
	post := env.createPost(t, alice, "Category-a")

	status, _ := env.do(t, request{method: http.MethodPost, path: "/comment", as: bob, json: fiber.Map{"postId": "Post-missing", "text": "hi"}})
	assert.Equal(t, http.StatusNotFound, status)

	status, raw := env.do(t, request{method: http.MethodPost, path: "/comment", as: bob, json: fiber.Map{"postId": post.PostID, "text": "Lovely"}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	comment := decode[models.Comment](t, raw)
	assert.Equal(t, "User-"+bob, comment.Author)

	status, _ = env.do(t, request{method: http.MethodDelete, path: "/comment/" + comment.CommentID, as: alice})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, request{method: http.MethodDelete, path: "/comment/" + comment.CommentID, as: bob})
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, request{method: http.MethodDelete, path: "/comment/" + comment.CommentID, as: bob})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)

	status, raw := env.do(t, request{method: http.MethodPost, path: "/category", as: alice, json: fiber.Map{"title": "Breakfast"}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	category := decode[models.Category](t, raw)

	status, raw = env.do(t, request{method: http.MethodPost, path: "/category", as: alice, json: fiber.Map{"title": " breakfast "}})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Following category already exists", decode[models.ErrorResponse](t, raw).Error)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/category"})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Category](t, raw), 1)

	status, raw = env.do(t, request{method: http.MethodGet, path: "/category/" + category.CategoryID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Breakfast", decode[models.Category](t, raw).Title)

	status, _ = env.do(t, request{method: http.MethodGet, path: "/category/Category-missing"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateUserProfile(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)
	env.signUp(t, bob)
	path := "/user/" + url.PathEscape("User-"+alice)

	status, _ := env.do(t, request{method: http.MethodPatch, path: path, as: bob, json: fiber.Map{"userName": "hijack"}})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := env.do(t, request{method: http.MethodPatch, path: path, as: alice, form: map[string]string{"description": "Loves baking"}, image: pngBytes})
	require.Equal(t, http.StatusOK, status, string(raw))
	first := decode[models.User](t, raw)
	assert.Equal(t, "Loves baking", first.Description)
	assert.Equal(t, "alice", first.UserName)
	assert.NotEmpty(t, first.ImageID)

	status, raw = env.do(t, request{method: http.MethodPatch, path: path, as: alice, image: pngBytes})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, []string{first.ImageID}, env.media.Destroyed)

	status, _ = env.do(t, request{method: http.MethodPatch, path: "/user/" + url.PathEscape("User-ghost@example.com"), as: alice, json: fiber.Map{"userName": "x"}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestImageSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, alice)

	big := append(append([]byte{}, pngBytes...), make([]byte, 1024*1024)...)
	status, raw := env.do(t, request{method: http.MethodPost, path: "/post", as: alice, image: big, form: map[string]string{
		"title": "t", "category": "c", "ingredients": "i", "recipe": "r",
	}})
	require.Equal(t, http.StatusBadRequest, status, string(raw))
	assert.Equal(t, "image", decode[models.ErrorResponse](t, raw).Fields[0].Field)
	assert.Zero(t, env.media.Count())
}

// MockUploader is a testify mock for media.Uploader.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, folder string, file io.Reader, filename string) (*media.Image, error) {
	args := m.Called(ctx, folder, file, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Image), args.Error(1)
}

func (m *MockUploader) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestCreatePost_UpstreamFailureHidesDetailsInProduction(t *testing.T) {
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, media.FolderPost, mock.Anything, "dish.png").
		Return(nil, assert.AnError).Once()

	tables := testutil.NewTables(t)
	ids := testutil.NewIdentityStub()
	require.NoError(t, ids.SignUp(context.Background(), alice, "Sup3r$ecret"))

	cfg := testConfig()
	cfg.Env = "production"
	s, err := NewServerWithDeps(cfg, &Backends{
		Users: tables.Users, Posts: tables.Posts, Categories: tables.Categories, Comments: tables.Comments,
		Identity: ids, Verifier: ids, Media: uploader,
	})
	require.NoError(t, err)
	env := &testEnv{app: s.NewApp(), tables: tables, identity: ids}

	status, raw := env.do(t, request{method: http.MethodPost, path: "/post", as: alice, image: pngBytes, form: map[string]string{
		"title": "t", "category": "c", "ingredients": "i", "recipe": "r",
	}})
	require.Equal(t, http.StatusInternalServerError, status)
	resp := decode[models.ErrorResponse](t, raw)
	assert.Equal(t, "Could not upload image", resp.Error)
	assert.Equal(t, models.CodeUpstream, resp.Code)
	assert.Empty(t, resp.Details)

	uploader.AssertExpectations(t)
	uploader.AssertNotCalled(t, "Destroy", mock.Anything, mock.Anything)
}

func TestNewServerWithDeps_RequiresBackends(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), &Backends{})
	assert.Error(t, err)
}

func TestSignUp_RateLimitFollowsConfiguredEnvironment(t *testing.T) {
	// the process environment must not switch the limiter off
	t.Setenv("APP_ENV", "test")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tables := testutil.NewTables(t)
	ids := testutil.NewIdentityStub()
	uploader := testutil.NewMediaStub()
	cfg := testConfig()
	cfg.Env = "production"
	s, err := NewServerWithDeps(cfg, &Backends{
		Users: tables.Users, Posts: tables.Posts, Categories: tables.Categories, Comments: tables.Comments,
		Identity: ids, Verifier: ids, Media: uploader, Redis: rdb,
	})
	require.NoError(t, err)
	env := &testEnv{app: s.NewApp(), tables: tables, identity: ids, media: uploader}

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		env.signUp(t, email)
	}
	status, raw := env.do(t, request{method: http.MethodPost, path: "/user", json: fiber.Map{
		"userName": "d", "email": "d@example.com", "password": "Sup3r$ecret",
	}})
	assert.Equal(t, http.StatusTooManyRequests, status, string(raw))
}
