// Package api is the Boletín Oficial REST collaborator: per-day bulletin
// and norm listings, tender PDF downloads, and the full-refresh reference
// sources (issuing agencies, territorial units, annual procurement).
// Every call can fail with a network, HTTP, or logical error; the client
// classifies them into the pipeline's failure taxonomy.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/baires-data/boletin-pipeline/internal/boletin"
	"github.com/baires-data/boletin-pipeline/pkg/config"
	errorsx "github.com/baires-data/boletin-pipeline/pkg/errors"
	"github.com/baires-data/boletin-pipeline/pkg/logger"
	"github.com/baires-data/boletin-pipeline/pkg/resilience"
)

// Client talks to the Boletín Oficial API. Transient failures (timeouts,
// 5xx) are retried with backoff behind a circuit breaker; PDF downloads
// are additionally rate-limited so the document server is not hammered.
type Client struct {
	cfg        config.APIConfig
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	pdfLimiter *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg config.APIConfig) *Client {
	pdfRate := cfg.PDFRatePerSec
	if pdfRate <= 0 {
		pdfRate = 5
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    resilience.NewCircuitBreaker("boletin-api", resilience.CircuitBreakerConfig{}),
		pdfLimiter: rate.NewLimiter(rate.Limit(pdfRate), 1),
		logger:     logger.WithComponent("boletin-api"),
		now:        time.Now,
	}
}

func (c *Client) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  c.cfg.MaxRetries,
		InitialDelay: c.cfg.RetryBaseDelay,
		MaxDelay:     c.cfg.RetryMaxDelay,
		RetryIf:      errorsx.Retryable,
	}
}

// Day fetches the bulletin and norms published on a date. A day with no
// bulletin returns ErrNotFound; a valid response whose normas sub-resource
// reports server errors returns ErrServerLogic.
func (c *Client) Day(ctx context.Context, date time.Time) (*Day, error) {
	fecha := date.Format(boletin.DateLayout)
	url := fmt.Sprintf("%s/obtenerBoletin/%s/true", c.cfg.BaseURL, fecha)

	var payload dayPayload
	err := resilience.Retry(ctx, "fetch-bulletin", c.retryConfig(), func() error {
		return c.breaker.Execute(func() error {
			return c.getJSON(ctx, url, fecha, &payload)
		})
	})
	if err != nil {
		return nil, err
	}
	if payload.Boletin == nil {
		return nil, errorsx.New(errorsx.ErrMalformedPayload, fecha, "response has no boletin object")
	}
	if len(payload.Normas.Errores) > 0 {
		return nil, errorsx.Newf(errorsx.ErrServerLogic, fecha, "normas errors: %v", payload.Normas.Errores)
	}
	day := payload.toDomain(date, c.now())
	c.logger.Debug("day fetched", "fecha", fecha, "numero", day.Bulletin.Numero, "normas", len(day.Norms))
	return &day, nil
}

// Bulletin fetches just the bulletin header for a date.
func (c *Client) Bulletin(ctx context.Context, date time.Time) (boletin.Bulletin, error) {
	day, err := c.Day(ctx, date)
	if err != nil {
		return boletin.Bulletin{}, err
	}
	return day.Bulletin, nil
}

// Norms fetches the norms published on a date. The API serves bulletin and
// norms from one endpoint, so this shares Day's single fetch.
func (c *Client) Norms(ctx context.Context, date time.Time) ([]boletin.Norm, error) {
	day, err := c.Day(ctx, date)
	if err != nil {
		return nil, err
	}
	return day.Norms, nil
}

// TenderPDF downloads a tender norm's PDF, honoring the rate limit and
// the shorter PDF timeout.
func (c *Client) TenderPDF(ctx context.Context, idNorma int64, url string) ([]byte, error) {
	identifier := fmt.Sprint(idNorma)
	if err := c.pdfLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("awaiting pdf rate limit: %w", err)
	}
	var body []byte
	err := resilience.Retry(ctx, "fetch-tender-pdf", c.retryConfig(), func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.PDFTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return errorsx.Newf(errorsx.ErrPDFExtract, identifier, "building request: %v", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportError(err, identifier)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errorsx.Newf(errorsx.ErrHTTPStatus, identifier, "HTTP %d fetching pdf", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(err, identifier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Agencies fetches the issuing-agency reference snapshot.
func (c *Client) Agencies(ctx context.Context) ([]boletin.Agency, error) {
	var dtos []agencyDTO
	url := c.cfg.BaseURL + "/obtenerOrganismosEmisores"
	if err := c.getJSONRetry(ctx, "fetch-agencies", url, "organismos", &dtos); err != nil {
		return nil, err
	}
	agencies := make([]boletin.Agency, 0, len(dtos))
	for _, d := range dtos {
		agencies = append(agencies, boletin.Agency{ID: d.ID, Nombre: d.Nombre})
	}
	return agencies, nil
}

// TerritorialUnits fetches the repartición reference snapshot.
func (c *Client) TerritorialUnits(ctx context.Context) ([]boletin.TerritorialUnit, error) {
	var dtos []territorialUnitDTO
	url := c.cfg.BaseURL + "/obtenerReparticiones"
	if err := c.getJSONRetry(ctx, "fetch-territorial-units", url, "reparticiones", &dtos); err != nil {
		return nil, err
	}
	units := make([]boletin.TerritorialUnit, 0, len(dtos))
	for _, d := range dtos {
		units = append(units, boletin.TerritorialUnit{ID: d.ID, Nombre: d.Nombre})
	}
	return units, nil
}

// AnnualProcurement fetches the OCID releases and returns the distinct
// supplier parties, sorted by id for deterministic snapshots.
func (c *Client) AnnualProcurement(ctx context.Context) ([]Party, error) {
	var releases []procurementReleaseDTO
	url := c.cfg.BaseURL + "/obtenerComprasAnuales"
	if err := c.getJSONRetry(ctx, "fetch-annual-procurement", url, "compras_anuales", &releases); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var parties []Party
	for _, release := range releases {
		for _, p := range release.Parties {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			parties = append(parties, p)
		}
	}
	sort.Slice(parties, func(i, j int) bool { return parties[i].ID < parties[j].ID })
	return parties, nil
}

func (c *Client) getJSONRetry(ctx context.Context, name, url, identifier string, out any) error {
	return resilience.Retry(ctx, name, c.retryConfig(), func() error {
		return c.breaker.Execute(func() error {
			return c.getJSON(ctx, url, identifier, out)
		})
	})
}

// getJSON performs one GET and classifies the outcome: 404 → ErrNotFound,
// other non-2xx → ErrHTTPStatus, undecodable body → ErrMalformedPayload.
func (c *Client) getJSON(ctx context.Context, url, identifier string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err, identifier)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errorsx.New(errorsx.ErrNotFound, identifier, "404 Not Found")
	case resp.StatusCode != http.StatusOK:
		return errorsx.Newf(errorsx.ErrHTTPStatus, identifier, "HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorsx.Newf(errorsx.ErrMalformedPayload, identifier, "decoding response: %v", err)
	}
	return nil
}

func classifyTransportError(err error, identifier string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorsx.Newf(errorsx.ErrTimeout, identifier, "%v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorsx.Newf(errorsx.ErrTimeout, identifier, "%v", err)
	}
	return errorsx.Newf(errorsx.ErrHTTPStatus, identifier, "transport error: %v", err)
}
