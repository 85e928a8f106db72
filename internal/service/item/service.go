package item

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"shoplite/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultStock is applied when an item is created without a stock value.
const DefaultStock = 100

// MaxPrice is the largest price the items.price numeric(12,2) column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

type repo interface {
	Search(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Create(ctx context.Context, it domain.Item) (*domain.Item, error)
	Update(ctx context.Context, id string, p domain.ItemPatch) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo     repo
	validate *validator.Validate
	logger   *zap.Logger
}

func New(r repo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{repo: r, validate: v, logger: logger}
}

// CreateInput is the payload of a catalog create.
type CreateInput struct {
	Title       string           `json:"title" validate:"min=2"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category"`
	ImageURL    string           `json:"imageUrl"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
}

// UpdateInput is a partial update; absent fields are left untouched.
type UpdateInput struct {
	Title       *string          `json:"title" validate:"omitempty,min=2"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"imageUrl"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
}

func (s *Service) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error) {
	return s.repo.Search(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.check(in, in.Price); err != nil {
		return nil, err
	}
	stock := DefaultStock
	if in.Stock != nil {
		stock = *in.Stock
	}
	return s.repo.Create(ctx, domain.Item{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Price:       *in.Price,
		Category:    strings.TrimSpace(in.Category),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Stock:       stock,
	})
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Item, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if err := s.check(in, in.Price); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, domain.ItemPatch{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Stock:       in.Stock,
	})
}

// Delete removes an item. Unknown ids succeed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) check(in any, price *decimal.Decimal) error {
	var fields []domain.FieldError
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, domain.FieldError{Field: fe.Field(), Msg: messageFor(fe)})
		}
	}
	if price != nil {
		if msg := priceProblem(*price); msg != "" {
			fields = append(fields, domain.FieldError{Field: "price", Msg: msg})
		}
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Message: "validation failed", Fields: fields}
	}
	return nil
}

func priceProblem(p decimal.Decimal) string {
	switch {
	case p.IsNegative():
		return "Price must be a non-negative number"
	case p.GreaterThan(MaxPrice):
		return "Price must not exceed " + MaxPrice.StringFixed(2)
	case !p.Equal(p.Truncate(2)):
		return "Price must have at most 2 decimal places"
	}
	return ""
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return "Title must be at least 2 characters"
	case "price":
		return "Price must be a non-negative number"
	case "stock":
		return "Stock must be a non-negative integer"
	}
	return fe.Field() + " is invalid"
}

// ParseFilter builds a filter from raw query parameters. Empty values are
// ignored; malformed prices are a validation error.
func ParseFilter(search, category, minPrice, maxPrice string) (domain.ItemFilter, error) {
	var f domain.ItemFilter
	if s := strings.TrimSpace(search); s != "" {
		f.Search = &s
	}
	if c := strings.TrimSpace(category); c != "" {
		f.Category = &c
	}
	var fields []domain.FieldError
	parse := func(name, raw string) *decimal.Decimal {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: name, Msg: name + " must be a number"})
			return nil
		}
		return &d
	}
	f.MinPrice = parse("minPrice", minPrice)
	f.MaxPrice = parse("maxPrice", maxPrice)
	if len(fields) > 0 {
		return domain.ItemFilter{}, &domain.ValidationError{Message: "invalid query", Fields: fields}
	}
	return f, nil
}
