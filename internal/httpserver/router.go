package httpserver

import (
	"errors"

	"shoplite/internal/db"
	tokensvc "shoplite/internal/service/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type tokenVerifier interface {
	Verify(raw string) (tokensvc.Claims, error)
}

// Deps carries the services the router dispatches to.
type Deps struct {
	Items  itemService
	Cart   cartService
	Auth   authService
	Tokens tokenVerifier
	CORS   CORSConfig
	// AdminCatalogWrites restricts item create/update/delete to admin tokens.
	AdminCatalogWrites bool
}

func (d Deps) validate() error {
	var errs []error
	if d.Items == nil {
		errs = append(errs, errors.New("httpserver: item service required"))
	}
	if d.Cart == nil {
		errs = append(errs, errors.New("httpserver: cart service required"))
	}
	if d.Auth == nil {
		errs = append(errs, errors.New("httpserver: auth service required"))
	}
	if d.Tokens == nil {
		errs = append(errs, errors.New("httpserver: token verifier required"))
	}
	return errors.Join(errs...)
}

// buildRouter wires routes for the API. Every route is served both at the
// root and under /api.
func buildRouter(logger *zap.Logger, db db.Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(logger),
		gin.Recovery(),
		securityHeaders(),
		corsMiddleware(deps.CORS),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	registerRoutes(&router.RouterGroup, logger, deps)
	registerRoutes(router.Group("/api"), logger, deps)

	return router, nil
}

func registerRoutes(r *gin.RouterGroup, logger *zap.Logger, deps Deps) {
	items := &itemHandlers{svc: deps.Items, logger: logger}
	cart := &cartHandlers{svc: deps.Cart, logger: logger}
	auth := &authHandlers{svc: deps.Auth, cart: deps.Cart, logger: logger}

	strict := requireAuth(deps.Tokens)
	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{strict}
		if deps.AdminCatalogWrites {
			chain = append(chain, requireAdmin())
		}
		return append(chain, h)
	}

	r.GET("/health", healthHandler)

	ig := r.Group("/items")
	ig.GET("", items.list)
	ig.GET("/:id", items.get)
	ig.POST("", guarded(items.create)...)
	ig.PUT("/:id", guarded(items.update)...)
	ig.DELETE("/:id", guarded(items.delete)...)

	cg := r.Group("/cart", strict)
	cg.GET("", cart.get)
	cg.POST("/add", cart.add)
	cg.PATCH("/update", cart.update)
	cg.POST("/update", cart.update)
	cg.DELETE("/remove/:itemId", cart.remove)
	cg.DELETE("/clear", cart.clear)
	cg.POST("/merge", cart.merge)

	ag := r.Group("/auth")
	ag.POST("/signup", auth.signup)
	ag.POST("/login", auth.login)
	ag.GET("/me", strict, auth.me)
	ag.GET("/session", optionalAuth(deps.Tokens), auth.session)
}
