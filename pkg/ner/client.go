package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reportlens-ai/analyzer/pkg/common/httpclient"
	"github.com/reportlens-ai/analyzer/pkg/common/logger"
)

// RawEntity is one span as emitted by the token-classification model.
type RawEntity struct {
	EntityGroup string  `json:"entity_group"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// Classifier is the external model-serving collaborator: document text
// in, labeled spans out. A failure is fatal to the per-document
// operation; the caller must not store partial results.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]RawEntity, error)
}

// HTTPClassifier invokes a token-classification model over HTTP
// (HuggingFace inference protocol: POST {"inputs": text}).
type HTTPClassifier struct {
	baseURL  string
	model    string
	client   *http.Client
	attempts int
}

func NewHTTPClassifier(baseURL, model string, timeout time.Duration, attempts int) *HTTPClassifier {
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPClassifier{
		baseURL:  baseURL,
		model:    model,
		client:   httpclient.New(timeout),
		attempts: attempts,
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) ([]RawEntity, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("encoding classification request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, url.PathEscape(c.model))

	var entities []RawEntity
	err = httpclient.Retry(ctx, c.attempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("model returned status %d: %s", resp.StatusCode, payload)
		}

		entities = entities[:0]
		return json.NewDecoder(resp.Body).Decode(&entities)
	})
	if err != nil {
		logger.Log.WithError(err).WithField("model", c.model).Error("classification failed")
		return nil, fmt.Errorf("classifying document text: %w", err)
	}

	return entities, nil
}
