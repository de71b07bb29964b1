package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Options configures the Microsoft Graph drive client. BaseURL and
// LoginBaseURL exist so tests can point the client at a local server.
type Options struct {
	BaseURL      string
	LoginBaseURL string
	TenantID     string
	ClientID     string
	ClientSecret string
	SiteURL      string
	DriveName    string
	HTTPClient   *http.Client
}

// Item is a drive child as returned by the children listing.
type Item struct {
	Name string
	ID   string
}

// Client talks to a single SharePoint document library through the
// Microsoft Graph API. The access token and resolved drive id are cached
// between calls; the token is refreshed when it nears expiry.
type Client struct {
	baseURL      string
	loginBaseURL string
	tenantID     string
	clientID     string
	clientSecret string
	siteURL      string
	driveName    string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	driveID     string
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://graph.microsoft.com"
	}
	loginBaseURL := strings.TrimRight(strings.TrimSpace(opts.LoginBaseURL), "/")
	if loginBaseURL == "" {
		loginBaseURL = "https://login.microsoftonline.com"
	}
	driveName := strings.TrimSpace(opts.DriveName)
	if driveName == "" {
		driveName = "Documentos"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      baseURL,
		loginBaseURL: loginBaseURL,
		tenantID:     strings.TrimSpace(opts.TenantID),
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		siteURL:      strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/"),
		driveName:    driveName,
		httpClient:   httpClient,
	}
}

// Authenticate exchanges the client credentials for an access token.
// It is safe to call repeatedly; a still-valid token is reused.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensureTokenLocked(ctx)
	return err
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureTokenLocked(ctx)
}

func (c *Client) ensureTokenLocked(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.tenantID == "" || c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("graph credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", "https://graph.microsoft.com/.default")

	tokenURL := c.loginBaseURL + "/" + c.tenantID + "/oauth2/v2.0/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: status=%d message=%s", resp.StatusCode, graphErrorMessage(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}
	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return c.token, nil
}

// ResolveDriveID locates the configured document library: the site is
// resolved from SiteURL, then the drive matching DriveName is picked
// from the site's drive list. The result is cached.
func (c *Client) ResolveDriveID(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.driveID != "" {
		id := c.driveID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	hostname, sitePath, err := splitSiteURL(c.siteURL)
	if err != nil {
		return "", err
	}

	var site struct {
		ID string `json:"id"`
	}
	sitePathRef := "/v1.0/sites/" + hostname + ":" + sitePath
	if err := c.getJSON(ctx, sitePathRef, &site); err != nil {
		return "", fmt.Errorf("resolve site: %w", err)
	}
	if site.ID == "" {
		return "", fmt.Errorf("resolve site: response carried no id")
	}

	var drives struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, "/v1.0/sites/"+site.ID+"/drives", &drives); err != nil {
		return "", fmt.Errorf("list drives: %w", err)
	}
	for _, d := range drives.Value {
		if d.Name == c.driveName {
			c.mu.Lock()
			c.driveID = d.ID
			c.mu.Unlock()
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("drive %q not found on site", c.driveName)
}

// ItemIDByPath looks up a drive item by its path relative to the drive
// root. A missing item reports found=false without an error.
func (c *Client) ItemIDByPath(ctx context.Context, path string) (string, bool, error) {
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return "", false, err
	}
	resp, body, err := c.do(ctx, http.MethodGet, "/v1.0/drives/"+driveID+"/root:/"+escapePath(path), nil, "")
	if err != nil {
		return "", false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var item struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &item); err != nil {
			return "", false, fmt.Errorf("decode item: %w", err)
		}
		return item.ID, true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("lookup item %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
}

// FetchContent downloads a file by path. A missing file reports
// found=false without an error.
func (c *Client) FetchContent(ctx context.Context, path string) ([]byte, bool, error) {
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return nil, false, err
	}
	resp, body, err := c.do(ctx, http.MethodGet, "/v1.0/drives/"+driveID+"/root:/"+escapePath(path)+":/content", nil, "")
	if err != nil {
		return nil, false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("fetch %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
}

// UploadContent writes a file at the given path, replacing any
// existing content.
func (c *Client) UploadContent(ctx context.Context, path string, data []byte) error {
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return err
	}
	resp, body, err := c.do(ctx, http.MethodPut, "/v1.0/drives/"+driveID+"/root:/"+escapePath(path)+":/content", data, "application/octet-stream")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
	return nil
}

// DeleteItem removes a drive item by id.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return err
	}
	resp, body, err := c.do(ctx, http.MethodDelete, "/v1.0/drives/"+driveID+"/items/"+itemID, nil, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete item %s: status=%d message=%s", itemID, resp.StatusCode, graphErrorMessage(body))
	}
	return nil
}

// ListChildren enumerates the direct children of a folder path.
func (c *Client) ListChildren(ctx context.Context, path string) ([]Item, error) {
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return nil, err
	}
	resp, body, err := c.do(ctx, http.MethodGet, "/v1.0/drives/"+driveID+"/root:/"+escapePath(path)+":/children", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list children of %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
	var payload struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	items := make([]Item, 0, len(payload.Value))
	for _, v := range payload.Value {
		items = append(items, Item{Name: v.Name, ID: v.ID})
	}
	return items, nil
}

// EnsureFolder creates the folder at the given path when it does not
// exist yet. Existing folders are left untouched.
func (c *Client) EnsureFolder(ctx context.Context, path string) error {
	_, found, err := c.ItemIDByPath(ctx, path)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	driveID, err := c.ResolveDriveID(ctx)
	if err != nil {
		return err
	}
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}
	payload, err := json.Marshal(map[string]any{"name": name, "folder": map[string]any{}})
	if err != nil {
		return err
	}
	resp, body, err := c.do(ctx, http.MethodPatch, "/v1.0/drives/"+driveID+"/root:/"+escapePath(path), payload, "application/json")
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("create folder %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
	return nil
}

// getJSON issues an authenticated GET and unmarshals a 200 response
// into target. Any other status is an error.
func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	resp, body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status=%d message=%s", path, resp.StatusCode, graphErrorMessage(body))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do issues an authenticated request and returns the drained response.
// The response body is fully read and closed before returning.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string) (*http.Response, []byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, nil, err
	}
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, nil, readErr
	}
	return resp, body, nil
}

// splitSiteURL breaks a SharePoint site URL into the hostname and the
// server-relative site path Graph expects in site lookups.
func splitSiteURL(siteURL string) (hostname, sitePath string, err error) {
	if siteURL == "" {
		return "", "", fmt.Errorf("site URL is not configured")
	}
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return "", "", fmt.Errorf("parse site URL: %w", err)
	}
	if parsed.Host == "" || parsed.Path == "" || parsed.Path == "/" {
		return "", "", fmt.Errorf("site URL %q must include a host and a site path", siteURL)
	}
	return parsed.Host, parsed.Path, nil
}

// escapePath escapes each segment of a drive-relative path while
// keeping the separators intact.
func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// graphErrorMessage extracts the human message from a Graph error body,
// falling back to the raw body.
func graphErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
