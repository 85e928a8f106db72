package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shoplite/internal/domain"
	authsvc "shoplite/internal/service/auth"
	cartsvc "shoplite/internal/service/cart"
	itemsvc "shoplite/internal/service/item"
	tokensvc "shoplite/internal/service/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var errTest = errors.New("boom")

type stubItemService struct {
	items      []domain.Item
	item       *domain.Item
	err        error
	lastFilter domain.ItemFilter
	created    *itemsvc.CreateInput
	deleted    []string
}

func (s *stubItemService) List(_ context.Context, f domain.ItemFilter) ([]domain.Item, error) {
	s.lastFilter = f
	return s.items, s.err
}

func (s *stubItemService) Get(_ context.Context, _ string) (*domain.Item, error) {
	return s.item, s.err
}

func (s *stubItemService) Create(_ context.Context, in itemsvc.CreateInput) (*domain.Item, error) {
	s.created = &in
	return s.item, s.err
}

func (s *stubItemService) Update(_ context.Context, _ string, _ itemsvc.UpdateInput) (*domain.Item, error) {
	return s.item, s.err
}

func (s *stubItemService) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

type stubCartService struct {
	lines    []domain.ResolvedLine
	merge    *cartsvc.MergeResult
	err      error
	calls    int
	lastUser string
	lastItem string
	lastQty  int
	merged   []domain.LineItem
}

func (s *stubCartService) record(userID, itemID string, qty int) ([]domain.ResolvedLine, error) {
	s.calls++
	s.lastUser, s.lastItem, s.lastQty = userID, itemID, qty
	return s.lines, s.err
}

func (s *stubCartService) Get(_ context.Context, userID string) ([]domain.ResolvedLine, error) {
	return s.record(userID, "", 0)
}

func (s *stubCartService) Add(_ context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error) {
	return s.record(userID, itemID, qty)
}

func (s *stubCartService) SetQuantity(_ context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error) {
	return s.record(userID, itemID, qty)
}

func (s *stubCartService) Remove(_ context.Context, userID, itemID string) ([]domain.ResolvedLine, error) {
	return s.record(userID, itemID, 0)
}

func (s *stubCartService) Clear(_ context.Context, userID string) ([]domain.ResolvedLine, error) {
	return s.record(userID, "", 0)
}

func (s *stubCartService) Merge(_ context.Context, userID string, lines []domain.LineItem) (*cartsvc.MergeResult, error) {
	s.calls++
	s.lastUser = userID
	s.merged = lines
	if s.err != nil {
		return nil, s.err
	}
	return s.merge, nil
}

type stubAuthService struct {
	user      *domain.User
	token     string
	signupErr error
	loginErr  error
	lookupErr error
}

func (s *stubAuthService) Signup(_ context.Context, _ authsvc.SignupInput) (*domain.User, string, error) {
	if s.signupErr != nil {
		return nil, "", s.signupErr
	}
	return s.user, s.token, nil
}

func (s *stubAuthService) Login(_ context.Context, _, _ string) (*domain.User, string, error) {
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	return s.user, s.token, nil
}

func (s *stubAuthService) Lookup(_ context.Context, _ string) (*domain.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.user, nil
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if deps.Items == nil {
		deps.Items = &stubItemService{}
	}
	if deps.Cart == nil {
		deps.Cart = &stubCartService{}
	}
	if deps.Auth == nil {
		deps.Auth = &stubAuthService{}
	}
	if deps.Tokens == nil {
		deps.Tokens = tokensvc.New(testSecret, 0)
	}
	router, err := buildRouter(zap.NewNop(), nil, deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func bearer(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := tokensvc.New(testSecret, 0).Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}
