package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/utils"
)

// chatRequest mirrors what the browser front end posts to /chat.
type chatRequest struct {
	Message string     `json:"message"`
	History []llm.Turn `json:"history"`
	Genre   string     `json:"genre,omitempty"`
}

// chatResponse is the relay's /chat answer.
type chatResponse struct {
	Reply   string       `json:"reply"`
	Actions []llm.Action `json:"actions"`
	HPDelta int          `json:"hpDelta"`
}

type relayError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// relayClient talks to a running relay over HTTP.
type relayClient struct {
	target     string
	httpClient *http.Client
}

func newRelayClient(target string) *relayClient {
	return &relayClient{
		target: strings.TrimRight(target, "/"),
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// send posts one turn with the full history. The relay is stateless, so the
// whole conversation travels every time.
func (c *relayClient) send(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to relay: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var re relayError
		if json.Unmarshal(respBody, &re) == nil && re.Error != "" {
			if re.Details != "" {
				return nil, fmt.Errorf("relay returned status %d: %s (%s)", resp.StatusCode, re.Error, re.Details)
			}
			return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, re.Error)
		}
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, utils.Truncate(string(respBody), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
