package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo"
	echo_middleware "github.com/labstack/echo/middleware"
	"go.uber.org/zap"

	"github.com/gamevault/recon/cache"
	"github.com/gamevault/recon/i18n"
	"github.com/gamevault/recon/provider/gamepoint"
	"github.com/gamevault/recon/provider/smileone"
)

const (
	catalogCacheKey = "gamepoint_catalog"
	catalogCacheTTL = time.Hour
)

// Server is the storefront-facing HTTP API: game-account validation proxy and
// the translated product catalog. It has no access to the order store; order
// state belongs to the reconciliation daemon.
type Server struct {
	e        *echo.Echo
	gp       *gamepoint.Provider
	accounts *smileone.Client
	cache    *cache.Cache
	tr       *i18n.Translator
	l        *zap.Logger
}

func New(gp *gamepoint.Provider, accounts *smileone.Client, c *cache.Cache, tr *i18n.Translator) *Server {
	s := &Server{
		e:        echo.New(),
		gp:       gp,
		accounts: accounts,
		cache:    c,
		tr:       tr,
		l:        zap.L().Named("web"),
	}

	s.e.HideBanner = true
	s.e.Use(echo_middleware.CORSWithConfig(echo_middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
	}))
	s.e.Use(echo_middleware.Recover())
	s.e.Use(echo_middleware.Logger())
	s.e.Use(echo_middleware.BodyLimit("64K"))

	s.e.POST("/api/validate", s.validateAccount)
	s.e.GET("/api/products", s.listProducts)
	s.e.GET("/api/languages", s.listLanguages)
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

func (s *Server) Start(addr string) error {
	s.l.Info("Starting web server.", zap.String("address", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) lang(c echo.Context) string {
	return s.tr.Negotiate(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
}

type validateRequest struct {
	Game string `json:"game" form:"game"`
	UID  string `json:"uid" form:"uid"`
	SID  string `json:"sid" form:"sid"`
}

func (s *Server) validateAccount(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil || req.Game == "" || req.UID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "game and uid are required",
		})
	}

	res, err := s.accounts.VerifyAccount(c.Request().Context(), req.Game, req.UID, req.SID)
	if err != nil {
		s.l.Warn("Account validation failed.",
			zap.String("game", req.Game),
			zap.String("uid", req.UID),
			zap.Error(err),
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": s.tr.Text(s.lang(c), "account_not_found", nil),
		})
	}

	// translate the upstream's canned messages, pass usernames through
	if res.Message != "" {
		key := "account_verified"
		if res.Status != "success" {
			key = "username_not_found"
		}
		res.Message = s.tr.Text(s.lang(c), key, nil)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) listProducts(c echo.Context) error {
	ctx := c.Request().Context()

	var products []gamepoint.Product
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, catalogCacheKey, &products); err != nil {
			s.l.Warn("Failed read catalog cache.", zap.Error(err))
		} else if ok {
			return c.JSON(http.StatusOK, products)
		}
	}

	products, err := s.gp.Catalog(ctx)
	if err != nil {
		s.l.Warn("Failed fetch catalog.", zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": s.tr.Text(s.lang(c), "catalog_unavailable", nil),
		})
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, products, catalogCacheTTL); err != nil {
			s.l.Warn("Failed write catalog cache.", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) listLanguages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"languages": s.tr.Languages(),
	})
}

// RunCatalogRefresher keeps the cached catalog warm so storefront requests do
// not pay the supplier's per-product detail calls. Runs until the context is
// cancelled.
func (s *Server) RunCatalogRefresher(ctx context.Context, interval time.Duration) {
	l := s.l.Named("catalog_refresher")
	l.Info("Started.", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Info("Stopped.")
			return
		case <-ticker.C:
		}
		products, err := s.gp.Catalog(ctx)
		if err != nil {
			l.Warn("Failed refresh catalog.", zap.Error(err))
			continue
		}
		if err := s.cache.Set(ctx, catalogCacheKey, products, catalogCacheTTL); err != nil {
			l.Warn("Failed write catalog cache.", zap.Error(err))
			continue
		}
		l.Info("Catalog refreshed.", zap.Int("products", len(products)))
	}
}
