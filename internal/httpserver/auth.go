package httpserver

import (
	"context"
	"errors"
	"net/http"

	"shoplite/internal/domain"
	authsvc "shoplite/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type authService interface {
	Signup(ctx context.Context, in authsvc.SignupInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Lookup(ctx context.Context, userID string) (*domain.User, error)
}

type signupRequest struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Cart     []lineRequest `json:"cart"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authHandlers struct {
	svc    authService
	cart   cartService
	logger *zap.Logger
}

func (h *authHandlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid signup payload")
		return
	}
	guest, err := mergeRequest{Items: req.Cart}.lines()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	u, token, err := h.svc.Signup(c.Request.Context(), authsvc.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := authResponse{Token: token, User: toUserResponse(*u)}
	if len(guest) > 0 {
		// The account is created either way; a failed merge leaves the guest
		// cart with the client.
		res, err := h.cart.Merge(c.Request.Context(), u.ID, guest)
		if err != nil {
			h.logger.Warn("signup cart merge failed", zap.String("user_id", u.ID), zap.Error(err))
		} else {
			resp.Cart = toLines(res.Lines)
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *authHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password required")
		return
	}
	u, token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: toUserResponse(*u)})
}

func (h *authHandlers) me(c *gin.Context) {
	u, err := h.svc.Lookup(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(*u)})
}

func (h *authHandlers) session(c *gin.Context) {
	uid := c.GetString(ctxUserID)
	if uid == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	u, err := h.svc.Lookup(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": toUserResponse(*u)})
}
