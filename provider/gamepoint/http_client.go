package gamepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type client struct {
	httpClient *http.Client
	base       string
	partnerID  string
	secretKey  string
}

func newClient(base, partnerID, secretKey, proxyURL string) (*client, error) {
	hc := &http.Client{Timeout: 30 * time.Second}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "Failed parse proxy url")
		}
		hc.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
	return &client{
		httpClient: hc,
		base:       base,
		partnerID:  partnerID,
		secretKey:  secretKey,
	}, nil
}

// POSTAndUnmarshalJson signs the payload as an HS256 JWT, sends it as
// {"payload": "<jwt>"} with the partner id header and decodes the JSON
// response into out.
func (c *client) POSTAndUnmarshalJson(ctx context.Context, endpoint string, data map[string]interface{}, out interface{}) error {
	claims := jwt.MapClaims{"timestamp": time.Now().Unix()}
	for k, v := range data {
		claims[k] = v
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secretKey))
	if err != nil {
		return errors.Wrap(err, "Failed sign payload")
	}
	b, err := json.Marshal(map[string]string{"payload": token})
	if err != nil {
		return errors.Wrap(err, "Failed marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+endpoint, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "Failed new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("partnerid", c.partnerID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Failed do request")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "Failed read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "Failed unmarshal response")
	}
	return nil
}
