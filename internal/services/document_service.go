package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// DocumentGenerator renders application documents and returns their storage
// URLs.
type DocumentGenerator interface {
	GenerateDisclosurePDF(ctx context.Context, app *models.Application) (string, error)
	GenerateLease(ctx context.Context, app *models.Application) (string, error)
	GenerateSignedLease(ctx context.Context, app *models.Application, sigs []*models.LeaseSignature) (string, error)
}

type httpDocumentGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPDocumentGenerator(baseURL, apiKey string) DocumentGenerator {
	return &httpDocumentGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *httpDocumentGenerator) render(ctx context.Context, path string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: docgen returned %d", utils.ErrExternalServiceFailure, resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	return out.URL, nil
}

func (g *httpDocumentGenerator) GenerateDisclosurePDF(ctx context.Context, app *models.Application) (string, error) {
	return g.render(ctx, "/v1/disclosures", map[string]interface{}{
		"application_id":      app.ID,
		"state":               app.Property.State,
		"federal_disclosures": app.Federal,
		"state_disclosures":   app.StateDisclosures,
	})
}

func (g *httpDocumentGenerator) GenerateLease(ctx context.Context, app *models.Application) (string, error) {
	return g.render(ctx, "/v1/leases", map[string]interface{}{
		"application_id": app.ID,
		"property":       app.Property,
		"applicant":      app.PersonalInfo.FirstName + " " + app.PersonalInfo.LastName,
		"monthly_rent":   app.Property.MonthlyRent,
	})
}

func (g *httpDocumentGenerator) GenerateSignedLease(ctx context.Context, app *models.Application, sigs []*models.LeaseSignature) (string, error) {
	return g.render(ctx, "/v1/leases/signed", map[string]interface{}{
		"application_id": app.ID,
		"lease_pdf_url":  app.LeasePDFURL,
		"signatures":     sigs,
	})
}

// localDocumentGenerator composes deterministic storage paths for local and
// demo environments where no docgen service is running.
type localDocumentGenerator struct {
	storageBase string
}

func NewLocalDocumentGenerator(storageBase string) DocumentGenerator {
	return &localDocumentGenerator{storageBase: storageBase}
}

func (g *localDocumentGenerator) GenerateDisclosurePDF(_ context.Context, app *models.Application) (string, error) {
	return fmt.Sprintf("%s/leases/%s/disclosures.pdf", g.storageBase, app.ID), nil
}

func (g *localDocumentGenerator) GenerateLease(_ context.Context, app *models.Application) (string, error) {
	return fmt.Sprintf("%s/leases/%s/lease.pdf", g.storageBase, app.ID), nil
}

func (g *localDocumentGenerator) GenerateSignedLease(_ context.Context, app *models.Application, _ []*models.LeaseSignature) (string, error) {
	return fmt.Sprintf("%s/leases/%s/lease-signed.pdf", g.storageBase, app.ID), nil
}
