package gamepoint

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// decodePayload verifies the request signature and returns the JWT claims.
func decodePayload(t *testing.T, r *http.Request) jwt.MapClaims {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(body, &envelope))

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(envelope["payload"], claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)
	return claims
}

func testProvider(t *testing.T, cache Cache, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewProvider(Config{
		Mode:          ModeSandbox,
		PartnerID:     "partner-1",
		SecretKey:     testSecret,
		EntrypointURL: srv.URL,
	}, cache)
	require.NoError(t, err)
	return p
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *memCache) Set(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func TestTokenSignsAndCaches(t *testing.T) {
	var tokenCalls int
	cache := newMemCache()
	p := testProvider(t, cache, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/token", r.URL.Path)
		require.Equal(t, "partner-1", r.Header.Get("partnerid"))
		claims := decodePayload(t, r)
		assert.Contains(t, claims, "timestamp")
		tokenCalls++
		w.Write([]byte(`{"code": 200, "token": "daily-token"}`))
	})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "daily-token", token)

	// second call is served from the cache
	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "daily-token", token)
	assert.Equal(t, 1, tokenCalls)
}

func TestTokenErrorCode(t *testing.T) {
	p := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 500, "message": "invalid partner"}`))
	})

	_, err := p.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid partner")
}

func TestBalance(t *testing.T) {
	p := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/merchant/token":
			w.Write([]byte(`{"code": 200, "token": "daily-token"}`))
		case "/merchant/balance":
			claims := decodePayload(t, r)
			assert.Equal(t, "daily-token", claims["token"])
			w.Write([]byte(`{"code": 200, "balance": "1057.25"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	balance, err := p.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1057.25", balance.StringFixed(2))
}

func TestCatalogSkipsBrokenDetail(t *testing.T) {
	p := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/merchant/token":
			w.Write([]byte(`{"code": 200, "token": "daily-token"}`))
		case "/product/list":
			w.Write([]byte(`{"code": 200, "detail": [{"id": 1, "name": "Mobile Legends"}, {"id": 2, "name": "Broken Game"}]}`))
		case "/product/detail":
			claims := decodePayload(t, r)
			if claims["productid"].(float64) == 2 {
				w.Write([]byte(`{"code": 500, "message": "unavailable"}`))
				return
			}
			w.Write([]byte(`{"code": 200, "fields": [{"name": "uid", "label": "User ID"}], "package": [{"id": 11, "name": "86 Diamonds", "price": "1.99"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	products, err := p.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Mobile Legends", products[0].Name)
	require.Len(t, products[0].Packages, 1)
	assert.Equal(t, "1.99", products[0].Packages[0].Price.StringFixed(2))
}

func TestValidateID(t *testing.T) {
	p := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/merchant/token":
			w.Write([]byte(`{"code": 200, "token": "daily-token"}`))
		case "/order/validate":
			claims := decodePayload(t, r)
			fields := claims["fields"].(map[string]interface{})
			assert.Equal(t, "12345678", fields["uid"])
			w.Write([]byte(`{"code": 200, "validation_token": "vt-abc"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	vt, err := p.ValidateID(context.Background(), 1, map[string]string{"uid": "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "vt-abc", vt)
}

func TestCreateOrderPending(t *testing.T) {
	p := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/merchant/token":
			w.Write([]byte(`{"code": 200, "token": "daily-token"}`))
		case "/order/create":
			claims := decodePayload(t, r)
			assert.Equal(t, "vt-abc", claims["validate_token"])
			assert.Equal(t, "order-77", claims["merchantcode"])
			w.Write([]byte(`{"code": 101, "orderid": "GP-900001"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := p.CreateOrder(context.Background(), 11, "vt-abc", "order-77")
	require.NoError(t, err)
	assert.Equal(t, "GP-900001", res.OrderID)
	assert.True(t, res.Pending)
	assert.Equal(t, 101, res.Code)
}
