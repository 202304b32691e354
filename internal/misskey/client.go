// Package misskey talks to a Misskey instance's admin API to allocate
// invite codes. It is the only side-effecting external dependency of the
// issuance core besides the key-value store.
package misskey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"invitebot/entity"
	"invitebot/lib/sl"
	"invitebot/lib/validate"
)

const requestTimeout = 10 * time.Second

type Config struct {
	APIURL           string
	Token            string
	InviteExpiryDays int
}

type Client struct {
	hc          *http.Client
	apiURL      string
	instanceURL string
	token       string
	expiryDays  int
	log         *slog.Logger
	now         func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if !strings.HasSuffix(apiURL, "/api") {
		apiURL += "/api"
	}
	return &Client{
		hc:          &http.Client{Timeout: requestTimeout},
		apiURL:      apiURL,
		instanceURL: strings.TrimSuffix(apiURL, "/api"),
		token:       cfg.Token,
		expiryDays:  cfg.InviteExpiryDays,
		log:         logger.With(sl.Module("misskey")),
		now:         time.Now,
	}
}

type createRequest struct {
	Token     string `json:"i"`
	Count     int    `json:"count"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// CreateInvite allocates one code. Permanent codes carry no expiresAt;
// otherwise the expiry is the configured number of days from now. The API
// is called at most once per invocation; retries are the user's business.
func (c *Client) CreateInvite(ctx context.Context, permanent bool) (*entity.AllocatedCode, error) {
	payload := createRequest{Token: c.token, Count: 1}
	if !permanent {
		payload.ExpiresAt = c.now().Add(time.Duration(c.expiryDays) * 24 * time.Hour).UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal invite request: %w", err)
	}

	endpoint := c.apiURL + "/invite/create"
	log := c.log.With(
		slog.String("endpoint", endpoint),
		slog.Bool("permanent", permanent),
	)

	t1 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		log.Error("invite request failed", sl.Err(err))
		return nil, fmt.Errorf("invite request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	log = log.With(
		slog.String("status", resp.Status),
		slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
	)
	if resp.StatusCode >= 300 {
		log.Error("instance API returned error", slog.String("body", string(body)))
		return nil, fmt.Errorf("misskey %s: %s", resp.Status, body)
	}

	code, err := decodeInvite(body)
	if err != nil {
		log.Error("decoding invite response", sl.Err(err))
		return nil, err
	}
	log.Debug("invite code allocated")
	return code, nil
}

// decodeInvite normalizes the two response shapes the API produces, a
// single invite object or a list of them, into one AllocatedCode. Anything
// else is rejected.
func decodeInvite(body []byte) (*entity.AllocatedCode, error) {
	trimmed := bytes.TrimSpace(body)

	var code entity.AllocatedCode
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []entity.AllocatedCode
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode invite list: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("invite list is empty")
		}
		code = list[0]
	} else {
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return nil, fmt.Errorf("decode invite: %w", err)
		}
	}

	if err := validate.Struct(&code); err != nil {
		return nil, fmt.Errorf("invalid invite response: %w", err)
	}
	return &code, nil
}

// InviteURL builds the registration link shown to the user.
func (c *Client) InviteURL(code string) string {
	return fmt.Sprintf("%s/?invitation=%s", c.instanceURL, code)
}

func (c *Client) InstanceURL() string {
	return c.instanceURL
}
