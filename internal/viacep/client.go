// Package viacep implements cep.Resolver against the public ViaCEP API.
package viacep

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/storelab/orders-api/internal/domain/cep"
)

// DefaultTimeout bounds a single lookup when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Config holds the resolver endpoint settings, passed in at construction.
type Config struct {
	// BaseURL is the ViaCEP API root, e.g. https://viacep.com.br/ws.
	BaseURL string
	// Timeout bounds each outbound lookup.
	Timeout time.Duration
}

// Client resolves postal codes through ViaCEP. It performs exactly one
// lookup attempt per call and keeps no state besides the HTTP client.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

var _ cep.Resolver = (*Client)(nil)

// NewClient creates a ViaCEP client with an instrumented transport.
func NewClient(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse viacep url")
	}
	if !parsed.IsAbs() {
		return nil, errors.New("viacep url must be absolute")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// payload mirrors the ViaCEP JSON response.
type payload struct {
	Erro        errFlag `json:"erro"`
	Logradouro  string  `json:"logradouro"`
	Complemento string  `json:"complemento"`
	Bairro      string  `json:"bairro"`
	Localidade  string  `json:"localidade"`
	UF          string  `json:"uf"`
	IBGE        string  `json:"ibge"`
	DDD         string  `json:"ddd"`
}

// errFlag accepts both the boolean and the quoted-string form of the
// "erro" marker that different ViaCEP deployments return.
type errFlag bool

func (f *errFlag) UnmarshalJSON(data []byte) error {
	*f = strings.Trim(string(data), `"`) == "true"
	return nil
}

// Resolve normalizes the postal code and issues a single lookup. Failures
// are classified so callers can tell a bad code from a provider outage:
// cep.ErrInvalidFormat, cep.ErrNotFound, cep.ErrLookupTimeout, or
// cep.ErrLookupUnavailable.
func (c *Client) Resolve(ctx context.Context, rawCEP string) (*cep.Address, error) {
	digits, err := cep.Normalize(rawCEP)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL.JoinPath(digits, "json/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.Wrap(cep.ErrLookupTimeout, err.Error())
		}
		return nil, errors.Wrap(cep.ErrLookupUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zctx.From(ctx).Warn("viacep lookup failed",
			zap.String("cep", digits),
			zap.Int("status", resp.StatusCode),
		)
		return nil, errors.Wrapf(cep.ErrLookupUnavailable, "status %d", resp.StatusCode)
	}

	var data payload
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.Wrap(cep.ErrLookupUnavailable, err.Error())
	}
	if bool(data.Erro) {
		return nil, cep.ErrNotFound
	}

	return &cep.Address{
		CEP:          cep.Format(digits),
		Street:       data.Logradouro,
		Complement:   data.Complemento,
		Neighborhood: data.Bairro,
		City:         data.Localidade,
		State:        data.UF,
		IBGE:         data.IBGE,
		DDD:          data.DDD,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
