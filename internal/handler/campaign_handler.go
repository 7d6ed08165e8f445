package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/service"
)

type CampaignService interface {
	Create(ctx context.Context, input service.CreateCampaignInput) (*domain.Campaign, error)
	Status(ctx context.Context, id string) (*service.CampaignStatusView, error)
	Delete(ctx context.Context, id string) error
}

type CampaignHandler struct {
	service CampaignService
}

func NewCampaignHandler(service CampaignService) (*CampaignHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("campaign service is required")
	}
	return &CampaignHandler{service: service}, nil
}

func RegisterCampaignRoutes(router fiber.Router, service CampaignService) error {
	h, err := NewCampaignHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/campaigns", h.CreateCampaign)
	v1.Get("/campaigns/:id/status", h.GetCampaignStatus)
	v1.Delete("/campaigns/:id", h.DeleteCampaign)

	return nil
}

type createCampaignRequest struct {
	UserID          string                   `json:"userId"`
	Name            string                   `json:"name"`
	Subject         string                   `json:"subject"`
	HTMLContent     string                   `json:"htmlContent"`
	ParameterValues map[string]string        `json:"parameterValues,omitempty"`
	Recipients      []createRecipientRequest `json:"recipients"`
}

type createRecipientRequest struct {
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type campaignResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"`
	RecipientCount int        `json:"recipientCount"`
	SuccessCount   int        `json:"successCount"`
	FailCount      int        `json:"failCount"`
	LastError      *string    `json:"lastError,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type campaignStatusResponse struct {
	Campaign       campaignResponse    `json:"campaign"`
	Progress       int                 `json:"progress"`
	PendingCount   int64               `json:"pendingCount"`
	RecentFailures []recipientResponse `json:"recentFailures"`
}

type recipientResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	recipients := make([]service.CreateRecipientInput, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, service.CreateRecipientInput{
			Email:    r.Email,
			Name:     r.Name,
			Metadata: r.Metadata,
		})
	}

	campaign, err := h.service.Create(c.Context(), service.CreateCampaignInput{
		UserID:          req.UserID,
		Name:            req.Name,
		Subject:         req.Subject,
		HTMLContent:     req.HTMLContent,
		ParameterValues: req.ParameterValues,
		Recipients:      recipients,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toCampaignResponse(campaign))
}

func (h *CampaignHandler) GetCampaignStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	view, err := h.service.Status(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	failures := make([]recipientResponse, 0, len(view.RecentFailures))
	for _, r := range view.RecentFailures {
		failures = append(failures, recipientResponse{
			ID:           r.ID,
			Email:        r.Email,
			Status:       r.Status.String(),
			ErrorMessage: r.ErrorMessage,
			SentAt:       r.SentAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(campaignStatusResponse{
		Campaign:       toCampaignResponse(view.Campaign),
		Progress:       view.Progress,
		PendingCount:   view.PendingCount,
		RecentFailures: failures,
	})
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"campaignId": id,
		"deleted":    true,
	})
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		Name:           c.Name,
		Subject:        c.Subject,
		Status:         c.Status.String(),
		RecipientCount: c.RecipientCount,
		SuccessCount:   c.SuccessCount,
		FailCount:      c.FailCount,
		LastError:      c.LastError,
		StartedAt:      c.StartedAt,
		CompletedAt:    c.CompletedAt,
		CreatedAt:      c.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return err
	}
}
