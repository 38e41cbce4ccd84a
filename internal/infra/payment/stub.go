package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"carrental/internal/app/policies"
	"carrental/internal/domain/shared/money"
)

// StubProcessor fakes the payment processor for dev and tests. Every created
// intent confirms with the configured outcome.
type StubProcessor struct {
	// FailConfirm makes ConfirmIntent report failure instead of success.
	FailConfirm bool

	mu      sync.Mutex
	intents map[string]money.Money
}

func NewStubProcessor() *StubProcessor {
	return &StubProcessor{intents: make(map[string]money.Money)}
}

func (s *StubProcessor) CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (policies.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "pi_" + uuid.NewString()
	s.intents[id] = amount
	return policies.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (s *StubProcessor) ConfirmIntent(ctx context.Context, intentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intentID]; !ok {
		return policies.IntentFailed, nil
	}
	if s.FailConfirm {
		return policies.IntentFailed, nil
	}
	return policies.IntentSucceeded, nil
}

var _ policies.PaymentsPort = (*StubProcessor)(nil)
