package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"shoplite/internal/domain"
	itemsvc "shoplite/internal/service/item"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type itemService interface {
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error)
	Get(ctx context.Context, id string) (*domain.Item, error)
	Create(ctx context.Context, in itemsvc.CreateInput) (*domain.Item, error)
	Update(ctx context.Context, id string, in itemsvc.UpdateInput) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
}

type itemHandlers struct {
	svc    itemService
	logger *zap.Logger
}

func (h *itemHandlers) list(c *gin.Context) {
	filter, err := itemsvc.ParseFilter(
		c.Query("search"),
		c.Query("category"),
		c.Query("minPrice"),
		c.Query("maxPrice"),
	)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	items, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toItemList(items))
}

func (h *itemHandlers) get(c *gin.Context) {
	it, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(*it))
}

func (h *itemHandlers) create(c *gin.Context) {
	var in itemsvc.CreateInput
	if err := bindItem(c, &in); err != nil {
		writeError(c, h.logger, err)
		return
	}
	it, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(*it))
}

func (h *itemHandlers) update(c *gin.Context) {
	var in itemsvc.UpdateInput
	if err := bindItem(c, &in); err != nil {
		writeError(c, h.logger, err)
		return
	}
	it, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(*it))
}

func (h *itemHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// itemError reports a missing catalog entry as a plain "Not found".
func (h *itemHandlers) itemError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	writeError(c, h.logger, err)
}

// itemFields lists the decodable item payload fields with the message used
// when a value has the wrong JSON type.
var itemFields = []struct {
	name string
	into func() any
	msg  string
}{
	{"title", func() any { return new(string) }, "Title must be at least 2 characters"},
	{"description", func() any { return new(string) }, "Description must be a string"},
	{"price", func() any { return new(decimal.Decimal) }, "Price must be a non-negative number"},
	{"category", func() any { return new(string) }, "Category must be a string"},
	{"imageUrl", func() any { return new(string) }, "Image URL must be a string"},
	{"stock", func() any { return new(int) }, "Stock must be a non-negative integer"},
}

// bindItem decodes an item payload. A field holding a value of the wrong type
// is reported as a field error, so clients get the same errors array as for
// failed validation.
func bindItem(c *gin.Context, out any) error {
	if err := c.ShouldBindBodyWith(out, binding.JSON); err == nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		return &domain.ValidationError{Message: "invalid item payload"}
	}
	var fields []domain.FieldError
	for _, f := range itemFields {
		v, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.into()); err != nil {
			fields = append(fields, domain.FieldError{Field: f.name, Msg: f.msg})
		}
	}
	return &domain.ValidationError{Message: "invalid item payload", Fields: fields}
}
