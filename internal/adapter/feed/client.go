package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wallet-reconciler/config"
	"wallet-reconciler/internal/core/domain"
	"wallet-reconciler/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SuccessCode is the body status code the provider uses for a good response.
const SuccessCode = "00"

// maxDetailBody caps how much of an upstream body is echoed back in error details.
const maxDetailBody = 2048

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.FeedClient against the bank history API.
type Client struct {
	baseURL      string
	timeout      time.Duration
	maxBodyBytes int64
	httpClient   HTTPClient
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewClient creates a feed client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg config.FeedConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 4 << 20
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      cfg.Timeout,
		maxBodyBytes: maxBody,
		httpClient:   httpClient,
		validate:     validator.New(),
		log:          log,
	}
}

// payload is the expected response schema.
type payload struct {
	Code         *string `json:"code" validate:"required"`
	Transactions []row   `json:"transactions" validate:"required,dive"`
}

type row struct {
	// SeqNo must not contain the fingerprint separator.
	SeqNo       scalar  `json:"SeqNo" validate:"required,excludes=-"`
	PostingDate string  `json:"PostingDate" validate:"required"`
	Amount      scalar  `json:"Amount" validate:"required"`
	DorCCode    string  `json:"DorCCode" validate:"required,oneof=C D"`
	Description *string `json:"Description"`
	Remark      *string `json:"Remark"`
}

// scalar accepts a JSON string or number and keeps its text.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = scalar(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = scalar(n.String())
	return nil
}

// Fetch downloads and validates the statement feed for token.
func (c *Client) Fetch(ctx context.Context, token string) ([]domain.FeedTransaction, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.ErrFeedTokenMissing()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + "/" + url.PathEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperror.ErrUpstreamFetch(0, "", fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of logs and error text.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, apperror.ErrUpstreamFetch(0, "", fmt.Errorf("requesting feed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, apperror.ErrUpstreamFetch(resp.StatusCode, "", fmt.Errorf("reading feed body: %w", err))
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, apperror.ErrUpstreamMalformed(truncate(body), fmt.Errorf("feed body exceeds %d bytes", c.maxBodyBytes))
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("feed fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.ErrUpstreamFetch(resp.StatusCode, truncate(body),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return c.decode(body)
}

func (c *Client) decode(body []byte) ([]domain.FeedTransaction, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperror.ErrUpstreamMalformed(truncate(body), fmt.Errorf("decoding feed: %w", err))
	}

	// The status code is checked before the rows so that an error response
	// without a transaction list is reported as a rejection.
	if p.Code == nil {
		return nil, apperror.ErrUpstreamMalformed(truncate(body), errors.New("missing code"))
	}
	if *p.Code != SuccessCode {
		return nil, apperror.ErrUpstreamRejected(*p.Code, truncate(body))
	}

	if err := c.validate.Struct(p); err != nil {
		return nil, apperror.ErrUpstreamMalformed(truncate(body), fmt.Errorf("validating feed: %w", err))
	}

	txs := make([]domain.FeedTransaction, 0, len(p.Transactions))
	for _, r := range p.Transactions {
		txs = append(txs, domain.FeedTransaction{
			SeqNo:       string(r.SeqNo),
			PostingDate: strings.TrimSpace(r.PostingDate),
			Amount:      string(r.Amount),
			DorCCode:    domain.DebitCreditCode(r.DorCCode),
			Description: deref(r.Description),
			Remark:      deref(r.Remark),
		})
	}
	return txs, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(body []byte) string {
	if len(body) > maxDetailBody {
		return string(body[:maxDetailBody]) + "...(truncated)"
	}
	return string(body)
}
