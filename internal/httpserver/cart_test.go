package httpserver

import (
	"net/http"
	"strings"
	"testing"

	"shoplite/internal/domain"
	cartsvc "shoplite/internal/service/cart"

	"github.com/shopspring/decimal"
)

const (
	cartUser = "8a0e8f8e-1c1a-4b7e-9a0b-6d5f4f3e2d01"
	cartItem = "5c7d9e0f-2a3b-4c5d-8e6f-7a8b9c0d1e2f"
)

func authHeader(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": bearer(t, domain.User{ID: cartUser})}
}

func TestCartEndpoints_RequireToken(t *testing.T) {
	cart := &stubCartService{}
	router := newTestRouter(t, Deps{Cart: cart})

	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/cart", ""},
		{http.MethodPost, "/cart/add", `{"itemId":"x","qty":1}`},
		{http.MethodPatch, "/cart/update", `{"itemId":"x","qty":1}`},
		{http.MethodPost, "/api/cart/update", `{"itemId":"x","qty":1}`},
		{http.MethodDelete, "/cart/remove/x", ""},
		{http.MethodDelete, "/api/cart/clear", ""},
		{http.MethodPost, "/cart/merge", `{"items":[]}`},
	}
	for _, tc := range cases {
		rec := do(router, tc.method, tc.path, tc.body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Missing token") {
			t.Fatalf("%s %s: unexpected body %s", tc.method, tc.path, rec.Body.String())
		}
	}
	if cart.calls != 0 {
		t.Fatalf("expected cart untouched, got %d calls", cart.calls)
	}
}

func TestCartEndpoints_InvalidToken(t *testing.T) {
	cart := &stubCartService{}
	router := newTestRouter(t, Deps{Cart: cart})

	rec := do(router, http.MethodGet, "/cart", "", map[string]string{"Authorization": "Bearer not-a-jwt"})
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid token") {
		t.Fatalf("expected 401 invalid token, got %d %s", rec.Code, rec.Body.String())
	}
	if cart.calls != 0 {
		t.Fatalf("expected cart untouched")
	}
}

func TestCartGet_RendersLines(t *testing.T) {
	item := domain.Item{ID: cartItem, Title: "Lamp", Price: decimal.RequireFromString("25.50")}
	cart := &stubCartService{lines: []domain.ResolvedLine{
		{ItemID: cartItem, Item: &item, Quantity: 2},
		{ItemID: "gone", Quantity: 1},
	}}
	router := newTestRouter(t, Deps{Cart: cart})

	rec := do(router, http.MethodGet, "/api/cart", "", authHeader(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items []struct {
			ItemID   string          `json:"itemId"`
			Item     *map[string]any `json:"item"`
			Quantity int             `json:"quantity"`
		} `json:"items"`
	}
	decode(t, rec, &body)
	if len(body.Items) != 2 || body.Items[0].Quantity != 2 || body.Items[1].Item != nil {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"price":25.5`) {
		t.Fatalf("expected numeric price, got %s", rec.Body.String())
	}
	if cart.lastUser != cartUser {
		t.Fatalf("expected user from token, got %q", cart.lastUser)
	}
}

func TestCartAdd_QuantityForms(t *testing.T) {
	cases := []struct {
		body    string
		wantQty int
		wantID  string
	}{
		{`{"itemId":"` + cartItem + `"}`, 1, cartItem},
		{`{"itemId":"` + cartItem + `","qty":3}`, 3, cartItem},
		{`{"itemId":"` + cartItem + `","qty":"4"}`, 4, cartItem},
		{`{"itemId":"` + cartItem + `","quantity":2}`, 2, cartItem},
		{`{"itemId":{"_id":"` + strings.ToUpper(cartItem) + `"},"qty":1}`, 1, cartItem},
	}
	for _, tc := range cases {
		cart := &stubCartService{lines: []domain.ResolvedLine{}}
		router := newTestRouter(t, Deps{Cart: cart})
		rec := do(router, http.MethodPost, "/cart/add", tc.body, authHeader(t))
		if rec.Code != http.StatusOK {
			t.Fatalf("body %s: expected 200, got %d %s", tc.body, rec.Code, rec.Body.String())
		}
		if cart.lastQty != tc.wantQty || cart.lastItem != tc.wantID {
			t.Fatalf("body %s: got item=%q qty=%d", tc.body, cart.lastItem, cart.lastQty)
		}
	}
}

func TestCartAdd_BadRequests(t *testing.T) {
	for _, body := range []string{
		`{"qty":1}`,
		`{"itemId":"x","qty":1.5}`,
		`{"itemId":"x","qty":"many"}`,
		`not json`,
	} {
		cart := &stubCartService{}
		router := newTestRouter(t, Deps{Cart: cart})
		rec := do(router, http.MethodPost, "/cart/add", body, authHeader(t))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if cart.calls != 0 {
			t.Fatalf("body %s: expected no service call", body)
		}
	}
}

func TestCartUpdate_RequiresQty(t *testing.T) {
	cart := &stubCartService{}
	router := newTestRouter(t, Deps{Cart: cart})

	rec := do(router, http.MethodPatch, "/cart/update", `{"itemId":"x"}`, authHeader(t))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = do(router, http.MethodPatch, "/cart/update", `{"itemId":"x","qty":0}`, authHeader(t))
	if rec.Code != http.StatusOK || cart.lastQty != 0 {
		t.Fatalf("expected qty 0 forwarded, got %d qty=%d", rec.Code, cart.lastQty)
	}
}

func TestCartErrors_MapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrLineNotFound, http.StatusNotFound, "Item not in cart"},
		{domain.ErrItemNotFound, http.StatusNotFound, "Item not found"},
		{domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{domain.InvalidField("qty", "qty must be at least 1"), http.StatusBadRequest, "qty must be at least 1"},
		{errTest, http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		router := newTestRouter(t, Deps{Cart: &stubCartService{err: tc.err}})
		rec := do(router, http.MethodDelete, "/cart/remove/"+cartItem, "", authHeader(t))
		if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.msg) {
			t.Fatalf("%v: expected %d %q, got %d %s", tc.err, tc.code, tc.msg, rec.Code, rec.Body.String())
		}
	}
}

func TestCartMerge(t *testing.T) {
	cart := &stubCartService{merge: &cartsvc.MergeResult{
		Lines:   []domain.ResolvedLine{{ItemID: cartItem, Quantity: 3}},
		Skipped: []string{"gone"},
	}}
	router := newTestRouter(t, Deps{Cart: cart})

	body := `{"items":[{"itemId":"` + cartItem + `","qty":2},{"itemId":"gone","quantity":"1"},{"item":{"id":"x"}}]}`
	rec := do(router, http.MethodPost, "/cart/merge", body, authHeader(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	want := []domain.LineItem{{ItemID: cartItem, Quantity: 2}, {ItemID: "gone", Quantity: 1}, {ItemID: "x", Quantity: 1}}
	if len(cart.merged) != len(want) {
		t.Fatalf("unexpected merge input %+v", cart.merged)
	}
	for i := range want {
		if cart.merged[i] != want[i] {
			t.Fatalf("line %d: expected %+v, got %+v", i, want[i], cart.merged[i])
		}
	}
	if !strings.Contains(rec.Body.String(), `"skipped":["gone"]`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCartMerge_NonIntegerQuantity(t *testing.T) {
	cart := &stubCartService{}
	router := newTestRouter(t, Deps{Cart: cart})

	rec := do(router, http.MethodPost, "/cart/merge", `{"items":[{"itemId":"a","qty":0.5}]}`, authHeader(t))
	if rec.Code != http.StatusBadRequest || cart.calls != 0 {
		t.Fatalf("expected 400 without service call, got %d calls=%d", rec.Code, cart.calls)
	}
}
