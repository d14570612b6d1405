package postcard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPReplyGenerator produces bot replies by calling an external generation
// endpoint. The endpoint receives {"content": ...} and answers
// {"reply": ...}; anything else counts as a failure and the caller falls
// back to the canned reply.
type HTTPReplyGenerator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPReplyGenerator(endpoint string) *HTTPReplyGenerator {
	return &HTTPReplyGenerator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPReplyGenerator) GenerateReply(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reply generator returned HTTP %d", resp.StatusCode)
	}

	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Reply, nil
}
