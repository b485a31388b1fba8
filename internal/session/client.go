package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brightclass/brightclass-lms/internal/assessment"
)

// Client talks to the assessment API over HTTP and satisfies both
// BankProvider and Submitter, so a session can be driven end to end against
// a remote gateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	var a assessment.Assessment
	err := c.do(ctx, http.MethodGet, "/assessments/"+id, nil, &a)
	return a, err
}

func (c *Client) Submit(ctx context.Context, sub assessment.Submission) (assessment.DetailedResult, error) {
	var det assessment.DetailedResult
	err := c.do(ctx, http.MethodPost, "/submissions", sub, &det)
	return det, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
