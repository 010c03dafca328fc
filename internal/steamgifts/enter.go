package steamgifts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sgam/internal/giveaway"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// EntryResult is the site's answer to an entry request.
type EntryResult struct {
	Success bool
	Points  int    // balance after the entry, when reported
	Message string // site message on failure
}

// entryResponse is the ajax reply. Counts arrive as strings or numbers.
type entryResponse struct {
	Type       string          `json:"type"`
	EntryCount json.RawMessage `json:"entry_count"`
	Points     json.RawMessage `json:"points"`
	Msg        string          `json:"msg"`
}

// Enter submits an entry for g. A transport failure is returned as an
// error; a refusal by the site is a result with Success false.
func (c *Client) Enter(ctx context.Context, g giveaway.Giveaway) (EntryResult, error) {
	code := g.Code()
	if code == "" {
		return EntryResult{}, fmt.Errorf("no giveaway code in %q", g.RelativeURL)
	}

	form := url.Values{}
	form.Set("xsrf_token", c.creds.XSRFToken)
	form.Set("do", "entry_insert")
	form.Set("code", code)

	req, err := c.newRequest(ctx, http.MethodPost, ajaxPath, strings.NewReader(form.Encode()))
	if err != nil {
		return EntryResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", c.baseURL+g.RelativeURL)

	body, err := c.do(req)
	if err != nil {
		return EntryResult{}, err
	}

	res := parseEntryResponse(body)
	c.logger.Debug("entry response",
		zap.String("code", code),
		zap.Bool("success", res.Success),
		zap.String("message", res.Message))
	return res, nil
}

func parseEntryResponse(body []byte) EntryResult {
	var r entryResponse
	if err := json.Unmarshal(bytes.TrimSpace(body), &r); err != nil {
		return EntryResult{Message: "unexpected response: " + truncate(string(body), 120)}
	}
	if r.Type != "success" || len(r.EntryCount) == 0 || len(r.Points) == 0 {
		msg := r.Msg
		if msg == "" {
			msg = "entry refused"
		}
		return EntryResult{Message: msg}
	}

	points, _ := strconv.Atoi(digits(string(r.Points)))
	return EntryResult{Success: true, Points: points}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
