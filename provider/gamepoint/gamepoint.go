package gamepoint

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"

	sandboxURL = "https://sandbox.gamepointclub.net"
	liveURL    = "https://api.gamepointclub.net"

	// the merchant token expires daily at 00:00 UTC+8, cache well under that
	tokenTTL = time.Hour
)

type Config struct {
	Mode          Mode
	PartnerID     string
	SecretKey     string
	ProxyURL      string
	EntrypointURL string // defaulted from Mode when empty
}

// Cache holds the daily merchant token between calls.
type Cache interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Provider is the client for the GamePoint top-up supplier.
type Provider struct {
	cfg   Config
	cl    *client
	cache Cache
	l     *zap.Logger
}

func NewProvider(cfg Config, cache Cache) (*Provider, error) {
	if cfg.EntrypointURL == "" {
		if cfg.Mode == ModeLive {
			cfg.EntrypointURL = liveURL
		} else {
			cfg.EntrypointURL = sandboxURL
		}
	}
	cl, err := newClient(cfg.EntrypointURL, cfg.PartnerID, cfg.SecretKey, cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	return &Provider{
		cfg:   cfg,
		cl:    cl,
		cache: cache,
		l:     zap.L().Named("gamepoint_provider"),
	}, nil
}

// response is the common envelope; 100 (success) and 101 (pending) come back
// from order calls, 200 from the rest.
type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r response) ok() bool {
	return r.Code == 100 || r.Code == 101 || r.Code == 200
}

type tokenResponse struct {
	response
	Token string `json:"token"`
}

type balanceResponse struct {
	response
	Balance decimal.Decimal `json:"balance"`
}

type ProductRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type listResponse struct {
	response
	Detail []ProductRef `json:"detail"`
}

type ProductField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type ProductPackage struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type detailResponse struct {
	response
	Fields   []ProductField   `json:"fields"`
	Packages []ProductPackage `json:"package"`
}

type Product struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Fields   []ProductField   `json:"fields"`
	Packages []ProductPackage `json:"packages"`
}

type validateResponse struct {
	response
	ValidationToken string `json:"validation_token"`
}

type OrderResult struct {
	Code    int
	OrderID string
	Pending bool
}

type orderResponse struct {
	response
	OrderID string `json:"orderid"`
}

// Token returns the daily merchant token, cached per mode.
func (p *Provider) Token(ctx context.Context) (string, error) {
	key := "gamepoint_token_" + string(p.cfg.Mode)
	var token string
	if p.cache != nil {
		if ok, err := p.cache.Get(ctx, key, &token); err != nil {
			p.l.Warn("Failed read token cache.", zap.Error(err))
		} else if ok && token != "" {
			return token, nil
		}
	}

	var resp tokenResponse
	if err := p.cl.POSTAndUnmarshalJson(ctx, "merchant/token", nil, &resp); err != nil {
		return "", err
	}
	if !resp.ok() || resp.Token == "" {
		return "", errors.Errorf("gamepoint error %d: %s", resp.Code, resp.Message)
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, resp.Token, tokenTTL); err != nil {
			p.l.Warn("Failed write token cache.", zap.Error(err))
		}
	}
	return resp.Token, nil
}

func (p *Provider) Balance(ctx context.Context) (decimal.Decimal, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var resp balanceResponse
	if err := p.cl.POSTAndUnmarshalJson(ctx, "merchant/balance", map[string]interface{}{"token": token}, &resp); err != nil {
		return decimal.Zero, err
	}
	if !resp.ok() {
		return decimal.Zero, errors.Errorf("gamepoint error %d: %s", resp.Code, resp.Message)
	}
	return resp.Balance, nil
}

// Catalog fetches the product list and each product's fields and packages.
// A failed detail call skips that product rather than failing the sync.
func (p *Provider) Catalog(ctx context.Context) ([]Product, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	var list listResponse
	if err := p.cl.POSTAndUnmarshalJson(ctx, "product/list", map[string]interface{}{"token": token}, &list); err != nil {
		return nil, err
	}
	if !list.ok() {
		return nil, errors.Errorf("gamepoint error %d: %s", list.Code, list.Message)
	}

	products := make([]Product, 0, len(list.Detail))
	for _, ref := range list.Detail {
		var detail detailResponse
		err := p.cl.POSTAndUnmarshalJson(ctx, "product/detail", map[string]interface{}{
			"token":     token,
			"productid": ref.ID,
		}, &detail)
		if err != nil || !detail.ok() {
			p.l.Warn("Failed fetch product detail.",
				zap.Int64("product_id", ref.ID),
				zap.String("product_name", ref.Name),
				zap.Error(err),
			)
			continue
		}
		products = append(products, Product{
			ID:       ref.ID,
			Name:     ref.Name,
			Fields:   detail.Fields,
			Packages: detail.Packages,
		})
		// rate limit protection
		time.Sleep(100 * time.Millisecond)
	}
	return products, nil
}

// ValidateID checks a game account id against the supplier. The returned
// validation token is only good for about 30 seconds.
func (p *Provider) ValidateID(ctx context.Context, productID int64, fields map[string]string) (string, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	var resp validateResponse
	err = p.cl.POSTAndUnmarshalJson(ctx, "order/validate", map[string]interface{}{
		"token":     token,
		"productid": productID,
		"fields":    fields,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.ok() || resp.ValidationToken == "" {
		return "", errors.Errorf("gamepoint error %d: %s", resp.Code, resp.Message)
	}
	return resp.ValidationToken, nil
}

func (p *Provider) CreateOrder(ctx context.Context, packageID int64, validationToken, merchantCode string) (*OrderResult, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	var resp orderResponse
	err = p.cl.POSTAndUnmarshalJson(ctx, "order/create", map[string]interface{}{
		"token":          token,
		"packageid":      packageID,
		"validate_token": validationToken,
		"merchantcode":   merchantCode,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, errors.Errorf("gamepoint error %d: %s", resp.Code, resp.Message)
	}
	p.l.Info("Created supplier order.",
		zap.String("merchant_code", merchantCode),
		zap.Int64("package_id", packageID),
		zap.Int("code", resp.Code),
	)
	return &OrderResult{
		Code:    resp.Code,
		OrderID: resp.OrderID,
		Pending: resp.Code == 101,
	}, nil
}
