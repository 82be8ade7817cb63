package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/chachabrian/rescuelink-backend/internal/database"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/chachabrian/rescuelink-backend/internal/testutil"
	"github.com/chachabrian/rescuelink-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type outbox struct {
	codes []string
	err   error
}

func (o *outbox) SendLoginOTP(_ context.Context, _, code string, _ int) error {
	if o.err != nil {
		return o.err
	}
	o.codes = append(o.codes, code)
	return nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	board  *incidents.Board
	tokens *utils.TokenManager
	mail   *outbox
	clock  *testutil.Clock
	user   models.User
	token  string
}

func newTestServer(t *testing.T, opts auth.Options, deps ...func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	require.NoError(t, database.RunMigrations(db))

	s := &testServer{
		db:     db,
		mail:   &outbox{},
		clock:  &testutil.Clock{T: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		tokens: utils.NewTokenManager("test-secret", time.Hour),
		user:   models.User{Name: "Ada", Email: "a@b.com"},
	}
	require.NoError(t, db.Create(&s.user).Error)

	codes := []string{"042917", "815004"}
	next := 0
	svc := auth.NewService(db, s.mail, s.tokens, opts, zap.NewNop(),
		auth.WithClock(s.clock.Now),
		auth.WithCodeGenerator(func() (string, error) {
			c := codes[next%len(codes)]
			next++
			return c, nil
		}),
	)

	s.board = incidents.NewBoard(incidents.WithClock(s.clock.Now))
	d := Deps{DB: db, Auth: svc, Tokens: s.tokens, Board: s.board, Log: zap.NewNop()}
	for _, fn := range deps {
		fn(&d)
	}

	s.router = gin.New()
	RegisterRoutes(s.router, d)

	token, err := s.tokens.GenerateToken(s.user.ID, s.user.Email)
	require.NoError(t, err)
	s.token = token
	return s
}

type response struct {
	code int
	body map[string]interface{}
}

func (r response) str(key string) string {
	s, _ := r.body[key].(string)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, authed bool) response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return s.serve(t, req)
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) response {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := response{code: w.Code, body: map[string]interface{}{}}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out.body), w.Body.String())
	}
	return out
}
