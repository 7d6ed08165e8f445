package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/service"
)

// retryAfterSeconds is the hint returned with retryable failures.
const retryAfterSeconds = "30"

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, campaignID string, batchIndex int) (*service.BatchResult, error)
}

type BatchHandler struct {
	processor BatchProcessor
	secret    string
}

func NewBatchHandler(processor BatchProcessor, secret string) (*BatchHandler, error) {
	if processor == nil {
		return nil, fmt.Errorf("batch processor is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("batch secret is required")
	}
	return &BatchHandler{processor: processor, secret: secret}, nil
}

func RegisterBatchRoutes(router fiber.Router, processor BatchProcessor, secret string) error {
	h, err := NewBatchHandler(processor, secret)
	if err != nil {
		return err
	}

	router.Group("/v1").Post("/campaigns/process-batch", h.ProcessBatch)
	return nil
}

type processBatchRequest struct {
	CampaignID string `json:"campaignId"`
	BatchIndex int    `json:"batchIndex"`
	Secret     string `json:"secret"`
}

type processBatchResponse struct {
	Status       string `json:"status,omitempty"`
	NextBatch    *int   `json:"nextBatch,omitempty"`
	Processed    int    `json:"processed,omitempty"`
	SuccessCount int    `json:"successCount,omitempty"`
	FailedCount  int    `json:"failedCount,omitempty"`
	Remaining    int64  `json:"remaining,omitempty"`
}

func (h *BatchHandler) ProcessBatch(c *fiber.Ctx) error {
	var req processBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid secret")
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "campaignId is required")
	}

	result, err := h.processor.ProcessBatch(c.Context(), req.CampaignID, req.BatchIndex)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "campaign not found")
	case errors.Is(err, domain.ErrLockNotAcquired):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"retry": true,
			"error": "campaign is being processed by another invocation",
		})
	default:
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"retry": true,
			"error": err.Error(),
		})
	}

	if result.Completed {
		return c.Status(fiber.StatusOK).JSON(processBatchResponse{
			Status:       "completed",
			SuccessCount: result.SuccessCount,
			FailedCount:  result.FailedCount,
		})
	}

	next := result.NextBatch
	return c.Status(fiber.StatusOK).JSON(processBatchResponse{
		NextBatch:    &next,
		Processed:    result.Processed,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
		Remaining:    result.Remaining,
	})
}
