package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"shoplite/internal/domain"
	cartsvc "shoplite/internal/service/cart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type cartService interface {
	Get(ctx context.Context, userID string) ([]domain.ResolvedLine, error)
	Add(ctx context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error)
	SetQuantity(ctx context.Context, userID, itemID string, qty int) ([]domain.ResolvedLine, error)
	Remove(ctx context.Context, userID, itemID string) ([]domain.ResolvedLine, error)
	Clear(ctx context.Context, userID string) ([]domain.ResolvedLine, error)
	Merge(ctx context.Context, userID string, lines []domain.LineItem) (*cartsvc.MergeResult, error)
}

var errQtyNotInteger = errors.New("qty must be an integer")

// lineRequest is one (item, quantity) pair as clients send it. The item may
// arrive as "itemId" or "item", the quantity as "qty" or "quantity".
type lineRequest struct {
	ItemID   domain.ItemRef `json:"itemId"`
	Item     domain.ItemRef `json:"item"`
	Qty      *json.Number   `json:"qty"`
	Quantity *json.Number   `json:"quantity"`
}

func (r lineRequest) itemID() string {
	if r.ItemID != "" {
		return r.ItemID.String()
	}
	return r.Item.String()
}

// quantity returns the requested quantity, or def with ok=false when absent.
func (r lineRequest) quantity(def int) (qty int, ok bool, err error) {
	n := r.Qty
	if n == nil {
		n = r.Quantity
	}
	if n == nil || strings.TrimSpace(n.String()) == "" {
		return def, false, nil
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) {
			return 0, true, errQtyNotInteger
		}
		v = int64(f)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, true, errQtyNotInteger
	}
	return int(v), true, nil
}

type mergeRequest struct {
	Items []lineRequest `json:"items"`
}

func (r mergeRequest) lines() ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(r.Items))
	for _, l := range r.Items {
		qty, _, err := l.quantity(1)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.LineItem{ItemID: l.itemID(), Quantity: qty})
	}
	return out, nil
}

type cartHandlers struct {
	svc    cartService
	logger *zap.Logger
}

func (h *cartHandlers) get(c *gin.Context) {
	lines, err := h.svc.Get(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Items: toLines(lines)})
}

func (h *cartHandlers) add(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "itemId and qty required")
		return
	}
	qty, _, err := req.quantity(1)
	if err != nil || req.itemID() == "" {
		badRequest(c, "itemId and qty required")
		return
	}
	lines, err := h.svc.Add(c.Request.Context(), c.GetString(ctxUserID), req.itemID(), qty)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Items: toLines(lines)})
}

func (h *cartHandlers) update(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "itemId and qty required")
		return
	}
	qty, present, err := req.quantity(0)
	if err != nil || !present || req.itemID() == "" {
		badRequest(c, "itemId and qty required")
		return
	}
	lines, err := h.svc.SetQuantity(c.Request.Context(), c.GetString(ctxUserID), req.itemID(), qty)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Items: toLines(lines)})
}

func (h *cartHandlers) remove(c *gin.Context) {
	lines, err := h.svc.Remove(c.Request.Context(), c.GetString(ctxUserID), c.Param("itemId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Items: toLines(lines)})
}

func (h *cartHandlers) clear(c *gin.Context) {
	lines, err := h.svc.Clear(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Items: toLines(lines)})
}

func (h *cartHandlers) merge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "items must be an array of {itemId, qty}")
		return
	}
	lines, err := req.lines()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.Merge(c.Request.Context(), c.GetString(ctxUserID), lines)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, mergeResponse{Items: toLines(res.Lines), Skipped: res.Skipped})
}
