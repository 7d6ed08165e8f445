package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/service"
)

type fakeCampaignService struct {
	createFunc func(ctx context.Context, input service.CreateCampaignInput) (*domain.Campaign, error)
	statusFunc func(ctx context.Context, id string) (*service.CampaignStatusView, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (f *fakeCampaignService) Create(ctx context.Context, input service.CreateCampaignInput) (*domain.Campaign, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, input)
	}
	return nil, domain.ErrValidation
}

func (f *fakeCampaignService) Status(ctx context.Context, id string) (*service.CampaignStatusView, error) {
	if f.statusFunc != nil {
		return f.statusFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCampaignService) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil
}

func newCampaignApp(t *testing.T, svc CampaignService) *fiber.App {
	t.Helper()

	app := fiber.New()
	if err := RegisterCampaignRoutes(app, svc); err != nil {
		t.Fatalf("RegisterCampaignRoutes: %v", err)
	}
	return app
}

func TestCreateCampaignAccepted(t *testing.T) {
	t.Parallel()

	app := newCampaignApp(t, &fakeCampaignService{
		createFunc: func(ctx context.Context, input service.CreateCampaignInput) (*domain.Campaign, error) {
			if len(input.Recipients) != 2 {
				t.Errorf("recipients = %d, want 2", len(input.Recipients))
			}
			return &domain.Campaign{
				ID:             "camp-1",
				UserID:         input.UserID,
				Name:           input.Name,
				Subject:        input.Subject,
				Status:         domain.CampaignStatusQueued,
				RecipientCount: len(input.Recipients),
			}, nil
		},
	})

	payload := map[string]any{
		"userId":      "user-1",
		"name":        "Launch",
		"subject":     "Hello",
		"htmlContent": "<p>Hi</p>",
		"recipients": []map[string]any{
			{"email": "ada@example.com", "name": "Ada"},
			{"email": "bob@example.com", "metadata": map[string]string{"plan": "pro"}},
		},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "queued" || out["id"] != "camp-1" {
		t.Fatalf("body = %v", out)
	}
}

func TestCreateCampaignValidationFailure(t *testing.T) {
	t.Parallel()

	app := newCampaignApp(t, &fakeCampaignService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", bytes.NewReader([]byte(`{"name":""}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetCampaignStatus(t *testing.T) {
	t.Parallel()

	msg := "bounced"
	app := newCampaignApp(t, &fakeCampaignService{
		statusFunc: func(ctx context.Context, id string) (*service.CampaignStatusView, error) {
			return &service.CampaignStatusView{
				Campaign: &domain.Campaign{
					ID:             id,
					Status:         domain.CampaignStatusProcessing,
					RecipientCount: 10,
					SuccessCount:   4,
					FailCount:      1,
				},
				Progress:     50,
				PendingCount: 5,
				RecentFailures: []domain.Recipient{
					{ID: "rcpt-9", Email: "x@example.com", Status: domain.RecipientStatusFailed, ErrorMessage: &msg},
				},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/camp-1/status", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["progress"] != float64(50) || out["pendingCount"] != float64(5) {
		t.Fatalf("body = %v", out)
	}
}

func TestGetCampaignStatusNotFound(t *testing.T) {
	t.Parallel()

	app := newCampaignApp(t, &fakeCampaignService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/missing/status", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteCampaignConflictWhileProcessing(t *testing.T) {
	t.Parallel()

	app := newCampaignApp(t, &fakeCampaignService{
		deleteFunc: func(ctx context.Context, id string) error {
			return domain.ErrConflict
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/v1/campaigns/camp-1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}
