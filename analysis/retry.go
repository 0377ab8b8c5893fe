package analysis

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
)

// retryingClient wraps a Completer with bounded retries, exponential
// backoff on transport failures, and JSON extraction from free-form model
// output. A parse failure on the final attempt degrades to a fallback
// result carrying the raw response instead of escalating.
type retryingClient struct {
	completer   Completer
	maxRetries  int
	backoffUnit time.Duration
	log         *log.Logger
}

// call runs up to maxRetries attempts for one item. It returns nil only
// when the retry loop never executes (maxRetries <= 0).
func (c *retryingClient) call(ctx context.Context, prompt, itemID string) *AnalysisResult {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		text, err := c.completer.Complete(ctx, prompt)
		if err != nil {
			c.log.Printf("api call failed item=%s attempt=%d: %v", itemID, attempt+1, err)
			// A cancelled context fails every remaining attempt the same
			// way; don't burn the retry budget on it.
			if ctx.Err() != nil {
				return &AnalysisResult{Error: err.Error(), ItemID: itemID}
			}
			if attempt < c.maxRetries-1 {
				sleepCtx(ctx, c.backoffUnit<<uint(attempt))
				continue
			}
			return &AnalysisResult{Error: err.Error(), ItemID: itemID}
		}

		var result AnalysisResult
		if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
			c.log.Printf("json parse failed item=%s attempt=%d: %v", itemID, attempt+1, err)
			if attempt == c.maxRetries-1 {
				return &AnalysisResult{Error: ErrJSONParseFailed, RawResponse: text, ItemID: itemID}
			}
			continue
		}
		c.log.Printf("item %s succeeded on attempt %d", itemID, attempt+1)
		return &result
	}
	return nil
}

// extractJSON picks the most likely JSON payload out of model output:
// a ```json fenced block if one is closed, otherwise the span from the
// first '{' to the last '}', otherwise the whole text.
func extractJSON(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		start := i + len("```json")
		if end := strings.Index(text[start:], "```"); end >= 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
