package storefront

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"shoplite/internal/domain"
	"shoplite/internal/httpserver"
	authsvc "shoplite/internal/service/auth"
	cartsvc "shoplite/internal/service/cart"
	itemsvc "shoplite/internal/service/item"
	tokensvc "shoplite/internal/service/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memUsers and memItems back the real services so the client is exercised
// against the actual router.
type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, domain.ErrAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	m.users[u.ID] = u
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u.Cart = copyCart(u.Cart)
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Cart = copyCart(u.Cart)
	return &u, nil
}

func (m *memUsers) SaveCart(_ context.Context, id string, c domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Cart = copyCart(c)
	m.users[id] = u
	return nil
}

func copyCart(c domain.Cart) domain.Cart {
	return domain.Cart{Lines: append([]domain.LineItem{}, c.Lines...)}
}

type memItems struct {
	mu    sync.Mutex
	items map[string]domain.Item
}

func (m *memItems) Search(context.Context, domain.ItemFilter) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Item{}
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memItems) GetByID(_ context.Context, id string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[domain.NormalizeItemID(id)]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (m *memItems) GetByIDs(_ context.Context, ids []string) (map[string]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Item, len(ids))
	for _, id := range ids {
		id = domain.NormalizeItemID(id)
		if it, ok := m.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (m *memItems) Create(_ context.Context, it domain.Item) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = uuid.NewString()
	m.items[it.ID] = it
	return &it, nil
}

func (m *memItems) Update(context.Context, string, domain.ItemPatch) (*domain.Item, error) {
	return nil, domain.ErrItemNotFound
}

func (m *memItems) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, domain.NormalizeItemID(id))
	return nil
}

type testAPI struct {
	server *httptest.Server
	users  *memUsers
	items  *memItems
	cart   *cartsvc.Service
	auth   *authsvc.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &memUsers{users: map[string]domain.User{}}
	items := &memItems{items: map[string]domain.Item{}}
	tokens := tokensvc.New("storefront-test", 0)
	api := &testAPI{
		users: users,
		items: items,
		cart:  cartsvc.New(users, items, nil),
		auth:  authsvc.New(users, tokens, nil),
	}

	srv, err := httpserver.New(":0", nil, nil, httpserver.Deps{
		Items:  itemsvc.New(items, nil),
		Cart:   api.cart,
		Auth:   api.auth,
		Tokens: tokens,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	api.server = httptest.NewServer(srv.Handler())
	t.Cleanup(api.server.Close)
	return api
}

func (a *testAPI) addItem(t *testing.T, title string, price int64) domain.Item {
	t.Helper()
	it, err := a.items.Create(context.Background(), domain.Item{Title: title, Price: decimal.NewFromInt(price), Stock: 100})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return *it
}

// register creates an account directly through the services.
func (a *testAPI) register(t *testing.T, email, password string) *domain.User {
	t.Helper()
	u, _, err := a.auth.Signup(context.Background(), authsvc.SignupInput{Name: "Shopper", Email: email, Password: password})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func (a *testAPI) serverQty(t *testing.T, userID, itemID string) int {
	t.Helper()
	u, err := a.users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Cart.Quantity(itemID)
}
