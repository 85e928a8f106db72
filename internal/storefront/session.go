package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shoplite/internal/domain"
	"shoplite/internal/guestcart"
	"shoplite/internal/localstore"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Local store keys. The guest cart lives under guestcart.Key.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ViewLine is one cart line as shown to the shopper, whichever cart backs it.
type ViewLine struct {
	ItemID   string
	Title    string
	Price    decimal.Decimal
	ImageURL string
	Qty      int
	// Missing is set for server lines whose item no longer exists.
	Missing bool
}

// View is a rendered cart.
type View struct {
	Guest bool
	Lines []ViewLine
}

// Count is the sum of quantities.
func (v View) Count() int {
	n := 0
	for _, l := range v.Lines {
		n += l.Qty
	}
	return n
}

// Total is the sum of price times quantity. Missing items count as zero.
func (v View) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range v.Lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total
}

// Session holds the client state: the bearer token and profile of the
// signed-in user, and the guest cart used while signed out. Signed in, the
// server cart is the only source of truth.
type Session struct {
	api    *Client
	store  localstore.Store
	guest  *guestcart.Cart
	logger *zap.Logger
}

func NewSession(api *Client, store localstore.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		api:    api,
		store:  store,
		guest:  guestcart.New(store, logger.Named("guestcart")),
		logger: logger,
	}
}

// Guest exposes the guest cart, mainly for subscribing to changes.
func (s *Session) Guest() *guestcart.Cart { return s.guest }

// API exposes the client for catalog reads.
func (s *Session) API() *Client { return s.api }

func (s *Session) Token() string {
	raw, ok, err := s.store.Get(KeyToken)
	if err != nil || !ok {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// User returns the stored profile, or nil when signed out.
func (s *Session) User() *User {
	if s.Token() == "" {
		return nil
	}
	raw, ok, err := s.store.Get(KeyUser)
	if err != nil || !ok {
		return nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

func (s *Session) Authenticated() bool { return s.Token() != "" }

// Login signs in and folds the guest cart into the server cart. The guest
// cart is cleared only after the merge succeeded, so a failed merge can be
// retried without double counting.
func (s *Session) Login(ctx context.Context, email, password string) (View, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return View{}, err
	}
	if err := s.saveAuth(res); err != nil {
		return View{}, err
	}
	return s.mergeGuest(ctx, res.Token)
}

// Signup creates an account. The guest cart travels with the signup request;
// when the server could not merge it there, it is merged explicitly.
func (s *Session) Signup(ctx context.Context, name, email, password string) (View, error) {
	lines := s.guest.LineItems()
	res, err := s.api.Signup(ctx, name, email, password, lines)
	if err != nil {
		return View{}, err
	}
	if err := s.saveAuth(res); err != nil {
		return View{}, err
	}
	if len(lines) > 0 && res.Cart != nil {
		if err := s.guest.Clear(); err != nil {
			return View{}, err
		}
		return serverView(res.Cart), nil
	}
	return s.mergeGuest(ctx, res.Token)
}

func (s *Session) mergeGuest(ctx context.Context, token string) (View, error) {
	lines := s.guest.LineItems()
	if len(lines) == 0 {
		items, err := s.api.Cart(ctx, token)
		if err != nil {
			return View{}, err
		}
		return serverView(items), nil
	}
	res, err := s.api.MergeCart(ctx, token, lines)
	if err != nil {
		return View{}, fmt.Errorf("merge guest cart: %w", err)
	}
	if len(res.Skipped) > 0 {
		s.logger.Info("guest cart items no longer available", zap.Strings("item_ids", res.Skipped))
	}
	if err := s.guest.Clear(); err != nil {
		return View{}, err
	}
	return serverView(res.Items), nil
}

// Logout forgets the token and profile. The guest cart is kept.
func (s *Session) Logout() error {
	if err := s.store.Delete(KeyToken); err != nil {
		return err
	}
	return s.store.Delete(KeyUser)
}

// Restore checks a stored token against the API and logs out when it no
// longer identifies a user.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token := s.Token()
	if token == "" {
		return false, nil
	}
	u, ok, err := s.api.Session(ctx, token)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Info("stored session no longer valid")
		return false, s.Logout()
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return false, err
	}
	return true, s.store.Set(KeyUser, raw)
}

// Cart renders the active cart.
func (s *Session) Cart(ctx context.Context) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		return s.api.Cart(ctx, token)
	}, func() ([]guestcart.Line, error) {
		return s.guest.Items(), nil
	})
}

// Add puts qty of it into the cart.
func (s *Session) Add(ctx context.Context, it domain.Item, qty int) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		return s.api.AddToCart(ctx, token, it.ID, max(qty, 1))
	}, func() ([]guestcart.Line, error) {
		return s.guest.Add(guestcart.Snapshot(it), qty)
	})
}

// SetQuantity sets a line's quantity. Signed in, qty <= 0 removes the line;
// in the guest cart it is clamped to 1.
func (s *Session) SetQuantity(ctx context.Context, itemID string, qty int) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		return s.api.UpdateCart(ctx, token, itemID, qty)
	}, func() ([]guestcart.Line, error) {
		return s.guest.SetQuantity(itemID, qty)
	})
}

// Bump changes a line's quantity by delta, never below 1.
func (s *Session) Bump(ctx context.Context, itemID string, delta int) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		items, err := s.api.Cart(ctx, token)
		if err != nil {
			return nil, err
		}
		id := domain.NormalizeItemID(itemID)
		for _, l := range items {
			if domain.NormalizeItemID(l.ItemID) == id {
				return s.api.UpdateCart(ctx, token, l.ItemID, max(l.Quantity+delta, 1))
			}
		}
		return nil, &APIError{Status: http.StatusNotFound, Message: "Item not in cart"}
	}, func() ([]guestcart.Line, error) {
		return s.guest.BumpBy(itemID, delta)
	})
}

func (s *Session) Remove(ctx context.Context, itemID string) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		return s.api.RemoveFromCart(ctx, token, itemID)
	}, func() ([]guestcart.Line, error) {
		return s.guest.Remove(itemID)
	})
}

func (s *Session) Clear(ctx context.Context) (View, error) {
	return s.serverOr(func(token string) ([]CartLine, error) {
		return s.api.ClearCart(ctx, token)
	}, func() ([]guestcart.Line, error) {
		return []guestcart.Line{}, s.guest.Clear()
	})
}

func (s *Session) serverOr(server func(token string) ([]CartLine, error), guest func() ([]guestcart.Line, error)) (View, error) {
	if token := s.Token(); token != "" {
		items, err := server(token)
		if err != nil {
			return View{}, err
		}
		return serverView(items), nil
	}
	lines, err := guest()
	if err != nil {
		return View{}, err
	}
	return guestView(lines), nil
}

func (s *Session) saveAuth(res *AuthResult) error {
	if strings.TrimSpace(res.Token) == "" {
		return fmt.Errorf("auth response without token")
	}
	user, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := s.store.Set(KeyToken, []byte(res.Token)); err != nil {
		return err
	}
	return s.store.Set(KeyUser, user)
}

func serverView(items []CartLine) View {
	v := View{Lines: make([]ViewLine, 0, len(items))}
	for _, l := range items {
		vl := ViewLine{ItemID: l.ItemID, Qty: l.Quantity}
		if l.Item != nil {
			vl.Title = l.Item.Title
			vl.Price = l.Item.Price
			vl.ImageURL = l.Item.ImageURL
		} else {
			vl.Missing = true
		}
		v.Lines = append(v.Lines, vl)
	}
	return v
}

func guestView(lines []guestcart.Line) View {
	v := View{Guest: true, Lines: make([]ViewLine, 0, len(lines))}
	for _, l := range lines {
		v.Lines = append(v.Lines, ViewLine{
			ItemID:   l.ItemID,
			Title:    l.Title,
			Price:    l.Price,
			ImageURL: l.ImageURL,
			Qty:      l.Qty,
		})
	}
	return v
}
