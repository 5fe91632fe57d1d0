package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/rentora/applications-service/internal/utils"
)

// CreditBureau returns an applicant's credit score. Implementations must be
// deterministic for the same identifier so repeated scoring runs agree.
type CreditBureau interface {
	Score(ctx context.Context, ssn string) (int, error)
}

// ---------- deterministic mock ----------

type mockCreditBureau struct{}

func NewMockCreditBureau() CreditBureau {
	return &mockCreditBureau{}
}

// Score hashes the identifier into the 500-799 range. Stable across runs,
// so drafts rescored with unchanged inputs produce identical breakdowns.
func (m *mockCreditBureau) Score(_ context.Context, ssn string) (int, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ssn))
	return 500 + int(h.Sum32()%300), nil
}

// ---------- real bureau over HTTP ----------

type httpCreditBureau struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPCreditBureau(baseURL, apiKey string) CreditBureau {
	return &httpCreditBureau{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *httpCreditBureau) Score(ctx context.Context, ssn string) (int, error) {
	payload, err := json.Marshal(map[string]string{"ssn": ssn})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/credit-score", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: bureau returned %d", utils.ErrExternalServiceFailure, resp.StatusCode)
	}

	var out struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	return out.Score, nil
}
