package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const processBatchPath = "/v1/campaigns/process-batch"

type batchRequest struct {
	CampaignID string `json:"campaignId"`
	BatchIndex int    `json:"batchIndex"`
	Secret     string `json:"secret"`
}

// HTTPTrigger re-invokes the batch endpoint over HTTP. Each hop carries
// the shared secret so the endpoint can reject external callers.
type HTTPTrigger struct {
	client  *resty.Client
	baseURL string
	secret  string
	logger  *zap.Logger
}

func NewHTTPTrigger(baseURL, secret string, logger *zap.Logger) (*HTTPTrigger, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("batch secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second)

	return &HTTPTrigger{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		logger:  logger,
	}, nil
}

func (t *HTTPTrigger) NextBatch(ctx context.Context, campaignID string, batchIndex int) error {
	if campaignID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if batchIndex < 0 {
		return fmt.Errorf("batch index must be non-negative")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batchRequest{
			CampaignID: campaignID,
			BatchIndex: batchIndex,
			Secret:     t.secret,
		}).
		Post(t.baseURL + processBatchPath)
	if err != nil {
		return fmt.Errorf("failed to trigger batch %d for campaign %s: %w", batchIndex, campaignID, err)
	}

	// 409 means another worker already holds the campaign; the hop is
	// not lost, so treat it as done.
	if resp.StatusCode() >= 400 && resp.StatusCode() != 409 {
		return fmt.Errorf("batch trigger for campaign %s returned status %d", campaignID, resp.StatusCode())
	}

	t.logger.Debug("triggered next batch",
		zap.String("campaignId", campaignID),
		zap.Int("batchIndex", batchIndex),
		zap.Int("status", resp.StatusCode()),
	)

	return nil
}
