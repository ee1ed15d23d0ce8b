package publish

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

var ErrNetlifyUnavailable = errors.New("netlify api token not configured")

const indexPath = "/index.html"

type NetlifyClientConfig struct {
	APIToken      string
	BaseURL       string
	TeamSlug      string
	CreateTimeout time.Duration
	DeployTimeout time.Duration
	StatusTimeout time.Duration
	HTTPClient    *http.Client
}

// NetlifyClient allocates sites and pushes single-page deploys. Every call
// is attempted once.
type NetlifyClient struct {
	apiToken      string
	baseURL       string
	teamSlug      string
	createTimeout time.Duration
	deployTimeout time.Duration
	statusTimeout time.Duration
	httpClient    *http.Client
}

func NewNetlifyClient(config NetlifyClientConfig) *NetlifyClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.netlify.com/api/v1"
	}
	if config.CreateTimeout <= 0 {
		config.CreateTimeout = 30 * time.Second
	}
	if config.DeployTimeout <= 0 {
		config.DeployTimeout = 60 * time.Second
	}
	if config.StatusTimeout <= 0 {
		config.StatusTimeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &NetlifyClient{
		apiToken:      strings.TrimSpace(config.APIToken),
		baseURL:       strings.TrimSuffix(config.BaseURL, "/"),
		teamSlug:      strings.TrimSpace(config.TeamSlug),
		createTimeout: config.CreateTimeout,
		deployTimeout: config.DeployTimeout,
		statusTimeout: config.StatusTimeout,
		httpClient:    config.HTTPClient,
	}
}

func (c *NetlifyClient) Available() bool {
	return c.apiToken != ""
}

// AllocateTarget creates a new site with the given name.
func (c *NetlifyClient) AllocateTarget(ctx context.Context, name string) (domain.Site, error) {
	if !c.Available() {
		return domain.Site{}, ErrNetlifyUnavailable
	}

	path := "/sites"
	if c.teamSlug != "" {
		path = "/" + url.PathEscape(c.teamSlug) + "/sites"
	}

	var site netlifySite
	err := c.doJSON(ctx, c.createTimeout, http.MethodPost, path, map[string]any{
		"name":          name,
		"custom_domain": nil,
	}, &site)
	if err != nil {
		return domain.Site{}, fmt.Errorf("create netlify site: %w", err)
	}

	return domain.Site{
		ID:       site.ID,
		Name:     site.Name,
		URL:      firstNonEmpty(site.SSLURL, site.URL),
		AdminURL: site.AdminURL,
	}, nil
}

// Push creates a digest deploy for the index document and uploads it when
// the provider reports it as missing.
func (c *NetlifyClient) Push(ctx context.Context, site domain.Site, website domain.Website) (domain.Deploy, error) {
	if !c.Available() {
		return domain.Deploy{}, ErrNetlifyUnavailable
	}

	document, err := BuildIndexHTML(website)
	if err != nil {
		return domain.Deploy{}, err
	}
	digest := sha1.Sum([]byte(document))
	sha := hex.EncodeToString(digest[:])

	var deploy netlifyDeploy
	err = c.doJSON(ctx, c.deployTimeout, http.MethodPost, "/sites/"+url.PathEscape(site.ID)+"/deploys", map[string]any{
		"files": map[string]string{indexPath: sha},
	}, &deploy)
	if err != nil {
		return domain.Deploy{}, fmt.Errorf("create netlify deploy: %w", err)
	}

	for _, required := range deploy.Required {
		if required != sha {
			continue
		}
		if err := c.uploadFile(ctx, deploy.ID, indexPath, []byte(document)); err != nil {
			return domain.Deploy{}, fmt.Errorf("upload %s: %w", indexPath, err)
		}
	}

	return deploy.toDomain(site.ID), nil
}

// PollStatus reads the current state of a deploy.
func (c *NetlifyClient) PollStatus(ctx context.Context, site domain.Site, deployID string) (domain.Deploy, error) {
	if !c.Available() {
		return domain.Deploy{}, ErrNetlifyUnavailable
	}

	var deploy netlifyDeploy
	path := "/sites/" + url.PathEscape(site.ID) + "/deploys/" + url.PathEscape(deployID)
	if err := c.doJSON(ctx, c.statusTimeout, http.MethodGet, path, nil, &deploy); err != nil {
		return domain.Deploy{}, fmt.Errorf("get netlify deploy: %w", err)
	}
	return deploy.toDomain(site.ID), nil
}

func (c *NetlifyClient) uploadFile(ctx context.Context, deployID, path string, content []byte) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.deployTimeout)
	defer cancel()

	endpoint := c.baseURL + "/deploys/" + url.PathEscape(deployID) + "/files" + path
	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPut, endpoint, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("create netlify request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiToken)
	request.Header.Set("Content-Type", "application/octet-stream")

	_, err = c.send(timeoutCtx, request)
	return err
}

func (c *NetlifyClient) doJSON(
	ctx context.Context,
	timeout time.Duration,
	method string,
	path string,
	payload any,
	target any,
) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal netlify payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(timeoutCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create netlify request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiToken)
	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	responseBody, err := c.send(timeoutCtx, request)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(responseBody, target); err != nil {
		return fmt.Errorf("decode netlify response: %w", err)
	}
	return nil
}

func (c *NetlifyClient) send(timeoutCtx context.Context, request *http.Request) ([]byte, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("netlify timeout: %w", err)
		}
		return nil, fmt.Errorf("netlify transport error: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read netlify body: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &APIError{StatusCode: response.StatusCode, Message: apiErrorMessage(body)}
	}
	return body, nil
}

type netlifySite struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	SSLURL   string `json:"ssl_url"`
	AdminURL string `json:"admin_url"`
}

type netlifyDeploy struct {
	ID           string     `json:"id"`
	SiteID       string     `json:"site_id"`
	State        string     `json:"state"`
	DeployURL    string     `json:"deploy_url"`
	DeploySSLURL string     `json:"deploy_ssl_url"`
	Required     []string   `json:"required"`
	CreatedAt    *time.Time `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at"`
}

func (d netlifyDeploy) toDomain(siteID string) domain.Deploy {
	return domain.Deploy{
		ID:          d.ID,
		SiteID:      firstNonEmpty(d.SiteID, siteID),
		URL:         firstNonEmpty(d.DeploySSLURL, d.DeployURL),
		State:       d.State,
		CreatedAt:   d.CreatedAt,
		PublishedAt: d.PublishedAt,
	}
}

// APIError is a non-2xx answer from the hosting provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netlify status %d: %s", e.StatusCode, e.Message)
}

func apiErrorMessage(body []byte) string {
	var envelope struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	message := strings.TrimSpace(string(body))
	if len(message) > 700 {
		message = message[:700]
	}
	return message
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
