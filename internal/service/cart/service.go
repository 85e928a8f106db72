package cart

import (
	"context"
	"fmt"

	"shoplite/internal/domain"

	"go.uber.org/zap"
)

// Service applies cart mutations for one user at a time. Each call is a
// single read-modify-write against the user's stored cart.
type Service struct {
	users  userRepo
	items  itemRepo
	logger *zap.Logger
}

type userRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SaveCart(ctx context.Context, userID string, cart domain.Cart) error
}

type itemRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error)
}

func New(users userRepo, items itemRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, items: items, logger: logger}
}

// MergeResult is the cart after a merge plus the incoming item ids that no
// longer exist in the catalog.
type MergeResult struct {
	Lines   []domain.ResolvedLine
	Skipped []string
}

func (s *Service) Get(ctx context.Context, userID string) ([]domain.ResolvedLine, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, u.Cart)
}

// Add increments the line for itemID by qty, appending a new line when absent.
func (s *Service) Add(ctx context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error) {
	itemID = domain.NormalizeItemID(itemID)
	if itemID == "" {
		return nil, domain.InvalidField("itemId", "itemId is required")
	}
	if qty < 1 {
		return nil, domain.InvalidField("qty", "qty must be at least 1")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	u.Cart.Add(itemID, qty)
	return s.save(ctx, u, "add")
}

// SetQuantity replaces the quantity of an existing line; qty <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error) {
	itemID = domain.NormalizeItemID(itemID)
	if itemID == "" {
		return nil, domain.InvalidField("itemId", "itemId is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.Cart.SetQuantity(itemID, qty); err != nil {
		return nil, err
	}
	return s.save(ctx, u, "set quantity")
}

func (s *Service) Remove(ctx context.Context, userID, itemID string) ([]domain.ResolvedLine, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.Cart.Remove(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, u, "remove")
}

func (s *Service) Clear(ctx context.Context, userID string) ([]domain.ResolvedLine, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Cart.Clear()
	return s.save(ctx, u, "clear")
}

// Merge folds guest lines into the user's cart additively. Every line is
// validated before anything is written; lines naming items that no longer
// exist are skipped and reported.
func (s *Service) Merge(ctx context.Context, userID string, lines []domain.LineItem) (*MergeResult, error) {
	incoming := make([]domain.LineItem, 0, len(lines))
	var fields []domain.FieldError
	for i, line := range lines {
		id := domain.NormalizeItemID(line.ItemID)
		switch {
		case id == "":
			fields = append(fields, domain.FieldError{Field: fieldName(i, "itemId"), Msg: "itemId is required"})
		case line.Quantity < 1:
			fields = append(fields, domain.FieldError{Field: fieldName(i, "qty"), Msg: "qty must be at least 1"})
		}
		incoming = append(incoming, domain.LineItem{ItemID: id, Quantity: line.Quantity})
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Message: "validation failed", Fields: fields}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(incoming) == 0 {
		resolved, err := s.resolve(ctx, u.Cart)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Lines: resolved, Skipped: []string{}}, nil
	}

	ids := make([]string, 0, len(incoming))
	for _, line := range incoming {
		ids = append(ids, line.ItemID)
	}
	known, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	skipped := []string{}
	seenSkipped := map[string]struct{}{}
	accepted := make([]domain.LineItem, 0, len(incoming))
	for _, line := range incoming {
		if _, ok := known[line.ItemID]; !ok {
			if _, dup := seenSkipped[line.ItemID]; !dup {
				seenSkipped[line.ItemID] = struct{}{}
				skipped = append(skipped, line.ItemID)
			}
			continue
		}
		accepted = append(accepted, line)
	}
	u.Cart.Merge(accepted)

	if err := s.users.SaveCart(ctx, u.ID, u.Cart); err != nil {
		return nil, err
	}
	s.logger.Info("cart merged",
		zap.String("user_id", u.ID),
		zap.Int("incoming", len(incoming)),
		zap.Int("skipped", len(skipped)),
		zap.Int("lines", len(u.Cart.Lines)),
	)
	resolved, err := s.resolve(ctx, u.Cart)
	if err != nil {
		return nil, err
	}
	return &MergeResult{Lines: resolved, Skipped: skipped}, nil
}

func (s *Service) save(ctx context.Context, u *domain.User, op string) ([]domain.ResolvedLine, error) {
	if err := s.users.SaveCart(ctx, u.ID, u.Cart); err != nil {
		return nil, err
	}
	s.logger.Debug("cart updated", zap.String("op", op), zap.String("user_id", u.ID), zap.Int("lines", len(u.Cart.Lines)))
	return s.resolve(ctx, u.Cart)
}

func (s *Service) resolve(ctx context.Context, c domain.Cart) ([]domain.ResolvedLine, error) {
	if len(c.Lines) == 0 {
		return []domain.ResolvedLine{}, nil
	}
	items, err := s.items.GetByIDs(ctx, c.ItemIDs())
	if err != nil {
		return nil, err
	}
	return c.Resolve(items), nil
}

func fieldName(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
