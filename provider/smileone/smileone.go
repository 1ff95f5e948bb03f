package smileone

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	EntrypointURL string
	APIKey        string
}

// Client proxies game-account lookups to the upstream checker. The upstream
// speaks form-encoded requests and answers with a loose JSON object whose
// username key differs per game.
type Client struct {
	cfg        Config
	httpClient *http.Client
	l          *zap.Logger
}

func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		l:          zap.L().Named("smileone_client"),
	}
}

type VerifyResult struct {
	Status   string `json:"status"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// usernameKeys is the fallback chain for games whose responses use a
// different key than the primary one.
var usernameKeys = []string{"username", "nickname", "role_name", "name", "char_name"}

// uidOnlyGames answer code 200 without any name; the account is considered
// verified by uid existence alone.
var uidOnlyGames = map[string]bool{
	"genshin-impact":     true,
	"honkai-star-rail":   true,
	"zenless-zone-zero":  true,
	"bloodstrike":        true,
	"ragnarok-m-classic": true,
}

// VerifyAccount checks a game account id (and zone/server id when the game
// has one) and resolves the in-game username when the upstream returns one.
func (c *Client) VerifyAccount(ctx context.Context, game, uid, sid string) (*VerifyResult, error) {
	form := url.Values{}
	form.Set("game", game)
	form.Set("uid", uid)
	if sid != "" {
		form.Set("sid", sid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.EntrypointURL+"/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "Failed new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Failed do request")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Failed read body")
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errors.Wrap(err, "Failed unmarshal response")
	}
	code, _ := data["code"].(float64)
	if int(code) != 200 {
		c.l.Warn("Account check rejected.",
			zap.String("game", game),
			zap.String("uid", uid),
			zap.Int("code", int(code)),
		)
		return &VerifyResult{Status: "error", Message: "Account not found"}, nil
	}

	if name := pickUsername(game, data); name != "" {
		return &VerifyResult{Status: "success", Username: name}, nil
	}
	if uidOnlyGames[game] {
		return &VerifyResult{Status: "success", Message: "Account Verified"}, nil
	}
	c.l.Warn("Account check succeeded without username.",
		zap.String("game", game),
		zap.String("uid", uid),
	)
	return &VerifyResult{Status: "error", Message: "Username not found in API response"}, nil
}

func pickUsername(game string, data map[string]interface{}) string {
	primary := "username"
	if game == "love-and-deepspace" {
		primary = "nickname"
	}
	if name := stringValue(data[primary]); name != "" {
		return name
	}
	for _, key := range usernameKeys {
		if key == primary {
			continue
		}
		if name := stringValue(data[key]); name != "" {
			return name
		}
	}
	return ""
}

func stringValue(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
