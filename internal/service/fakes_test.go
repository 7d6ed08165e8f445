package service

import (
	"context"
	"sync"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/mail"
	"github.com/ferdikurnia/mailblast/internal/queue"
)

type fakeCampaignRepo struct {
	mu sync.Mutex

	createFunc      func(ctx context.Context, c *domain.Campaign) error
	getByIDFunc     func(ctx context.Context, id string) (*domain.Campaign, error)
	acquireLockFunc func(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error)
	releaseLockFunc func(ctx context.Context, id string) error
	incrementFunc   func(ctx context.Context, id string, success, fail int, now time.Time) error
	recordErrFunc   func(ctx context.Context, id string, message string) error
	finalizeFunc    func(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, completedAt time.Time) (bool, error)
	deleteFunc      func(ctx context.Context, id string) error

	releasedIDs []string
	increments  [][2]int
	recordedErr string
}

func (f *fakeCampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, c)
	}
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCampaignRepo) AcquireLock(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	if f.acquireLockFunc != nil {
		return f.acquireLockFunc(ctx, id, now, lease)
	}
	return true, nil
}

func (f *fakeCampaignRepo) ReleaseLock(ctx context.Context, id string) error {
	f.mu.Lock()
	f.releasedIDs = append(f.releasedIDs, id)
	f.mu.Unlock()
	if f.releaseLockFunc != nil {
		return f.releaseLockFunc(ctx, id)
	}
	return nil
}

func (f *fakeCampaignRepo) IncrementCounts(ctx context.Context, id string, success, fail int, now time.Time) error {
	f.mu.Lock()
	f.increments = append(f.increments, [2]int{success, fail})
	f.mu.Unlock()
	if f.incrementFunc != nil {
		return f.incrementFunc(ctx, id, success, fail, now)
	}
	return nil
}

func (f *fakeCampaignRepo) RecordError(ctx context.Context, id string, message string) error {
	f.mu.Lock()
	f.recordedErr = message
	f.mu.Unlock()
	if f.recordErrFunc != nil {
		return f.recordErrFunc(ctx, id, message)
	}
	return nil
}

func (f *fakeCampaignRepo) Finalize(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, completedAt time.Time) (bool, error) {
	if f.finalizeFunc != nil {
		return f.finalizeFunc(ctx, id, status, sent, failed, completedAt)
	}
	return true, nil
}

func (f *fakeCampaignRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil
}

type fakeRecipientRepo struct {
	mu sync.Mutex

	createBatchFunc   func(ctx context.Context, recipients []*domain.Recipient) error
	listPendingFunc   func(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error)
	countPendingFunc  func(ctx context.Context, campaignID string) (int64, error)
	countByStatusFunc func(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error)
	markSentFunc      func(ctx context.Context, id string, sentAt time.Time) (bool, error)
	markFailedFunc    func(ctx context.Context, id string, errorMessage string) (bool, error)
	listFailuresFunc  func(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error)

	sentIDs   []string
	failedIDs []string
	failedMsg map[string]string
}

func (f *fakeRecipientRepo) CreateBatch(ctx context.Context, recipients []*domain.Recipient) error {
	if f.createBatchFunc != nil {
		return f.createBatchFunc(ctx, recipients)
	}
	return nil
}

func (f *fakeRecipientRepo) ListPending(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
	if f.listPendingFunc != nil {
		return f.listPendingFunc(ctx, campaignID, limit)
	}
	return nil, nil
}

func (f *fakeRecipientRepo) CountPending(ctx context.Context, campaignID string) (int64, error) {
	if f.countPendingFunc != nil {
		return f.countPendingFunc(ctx, campaignID)
	}
	return 0, nil
}

func (f *fakeRecipientRepo) CountByStatus(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error) {
	if f.countByStatusFunc != nil {
		return f.countByStatusFunc(ctx, campaignID, status)
	}
	return 0, nil
}

func (f *fakeRecipientRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	f.mu.Lock()
	f.sentIDs = append(f.sentIDs, id)
	f.mu.Unlock()
	if f.markSentFunc != nil {
		return f.markSentFunc(ctx, id, sentAt)
	}
	return true, nil
}

func (f *fakeRecipientRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (bool, error) {
	f.mu.Lock()
	f.failedIDs = append(f.failedIDs, id)
	if f.failedMsg == nil {
		f.failedMsg = make(map[string]string)
	}
	f.failedMsg[id] = errorMessage
	f.mu.Unlock()
	if f.markFailedFunc != nil {
		return f.markFailedFunc(ctx, id, errorMessage)
	}
	return true, nil
}

func (f *fakeRecipientRepo) ListRecentFailures(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
	if f.listFailuresFunc != nil {
		return f.listFailuresFunc(ctx, campaignID, limit)
	}
	return nil, nil
}

type fakeSmtpConfigRepo struct {
	mu sync.Mutex

	nextAvailableFunc func(ctx context.Context, userID string, now time.Time) (*domain.SmtpConfig, error)

	calls int
}

func (f *fakeSmtpConfigRepo) NextAvailable(ctx context.Context, userID string, now time.Time) (*domain.SmtpConfig, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.nextAvailableFunc != nil {
		return f.nextAvailableFunc(ctx, userID, now)
	}
	return &domain.SmtpConfig{ID: "smtp-1", UserID: userID, Host: "smtp.example.com", Port: 587, FromEmail: "no-reply@example.com"}, nil
}

type fakeEmailLogRepo struct {
	mu sync.Mutex

	createFunc func(ctx context.Context, l *domain.EmailLog) error

	logs []domain.EmailLog
}

func (f *fakeEmailLogRepo) Create(ctx context.Context, l *domain.EmailLog) error {
	f.mu.Lock()
	f.logs = append(f.logs, *l)
	f.mu.Unlock()
	if f.createFunc != nil {
		return f.createFunc(ctx, l)
	}
	return nil
}

type fakeMailer struct {
	mu sync.Mutex

	sendFunc func(ctx context.Context, cfg domain.SmtpConfig, msg mail.Message) error

	attempts int
	messages []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, cfg domain.SmtpConfig, msg mail.Message) error {
	f.mu.Lock()
	f.attempts++
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	if f.sendFunc != nil {
		return f.sendFunc(ctx, cfg, msg)
	}
	return nil
}

type fakeTrigger struct {
	mu sync.Mutex

	nextBatchFunc func(ctx context.Context, campaignID string, batchIndex int) error

	calls   []int
	fired   chan struct{}
	firedID string
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{fired: make(chan struct{}, 8)}
}

func (f *fakeTrigger) NextBatch(ctx context.Context, campaignID string, batchIndex int) error {
	f.mu.Lock()
	f.calls = append(f.calls, batchIndex)
	f.firedID = campaignID
	f.mu.Unlock()
	if f.fired != nil {
		f.fired <- struct{}{}
	}
	if f.nextBatchFunc != nil {
		return f.nextBatchFunc(ctx, campaignID, batchIndex)
	}
	return nil
}

func (f *fakeTrigger) batchIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeRateLimiter struct {
	mu sync.Mutex

	waitFunc func(ctx context.Context, smtpHost string) error

	waits []string
}

func (f *fakeRateLimiter) Allow(ctx context.Context, smtpHost string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, smtpHost string) error {
	f.mu.Lock()
	f.waits = append(f.waits, smtpHost)
	f.mu.Unlock()
	if f.waitFunc != nil {
		return f.waitFunc(ctx, smtpHost)
	}
	return nil
}

type fakeConsumer struct {
	consumeFunc func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFunc != nil {
		return f.consumeFunc(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }
