package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"carrental/internal/app/policies"
	"carrental/internal/domain/shared/money"
)

// HTTPProcessor talks to the external payment processor over its JSON API.
type HTTPProcessor struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (p *HTTPProcessor) CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (policies.Intent, error) {
	var zero policies.Intent
	if p == nil || p.Client == nil {
		return zero, errors.New("payment: http client not configured")
	}
	if p.BaseURL == "" {
		return zero, errors.New("payment: base url not configured")
	}

	body, err := json.Marshal(createIntentRequest{
		Amount:   amount.Amount,
		Currency: strings.ToLower(amount.Currency),
		Metadata: metadata,
	})
	if err != nil {
		return zero, err
	}

	var resp intentResponse
	if err := p.do(ctx, http.MethodPost, "/v1/payment_intents", bytes.NewReader(body), &resp); err != nil {
		p.logError("payment intent creation failed", metadata["booking_id"], err)
		return zero, err
	}
	return policies.Intent{ID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

func (p *HTTPProcessor) ConfirmIntent(ctx context.Context, intentID string) (string, error) {
	if p == nil || p.Client == nil {
		return "", errors.New("payment: http client not configured")
	}
	var resp intentResponse
	path := fmt.Sprintf("/v1/payment_intents/%s/confirm", intentID)
	if err := p.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		p.logError("payment intent confirmation failed", intentID, err)
		return "", err
	}
	return resp.Status, nil
}

func (p *HTTPProcessor) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	request, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(p.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment processor returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *HTTPProcessor) logError(msg, ref string, err error) {
	if p.Logger == nil {
		return
	}
	p.Logger.Error(msg, "ref", ref, "error", err)
}

var _ policies.PaymentsPort = (*HTTPProcessor)(nil)
