package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the production publishing API root.
const DefaultBaseURL = "https://api.linkedin.com"

// ExternalCallError wraps any failure talking to the publishing API.
// The post that triggered the call stays pending; retrying is the
// caller's (human's) decision.
type ExternalCallError struct {
	Step   string // which call failed: userinfo, register-upload, upload, create-post
	Status int    // HTTP status when the provider answered, 0 otherwise
	Detail string // provider error payload, truncated
	Err    error
}

func (e *ExternalCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("publish %s failed: status %d: %s", e.Step, e.Status, e.Detail)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

// TokenSource yields a valid access token before each authenticated call.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// Client performs the external post-creation call, including the two-step
// media upload when an image is attached.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// NewClient creates a publish gateway against baseURL (DefaultBaseURL when empty).
func NewClient(tokens TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// Publish creates exactly one external post and returns the identifier the
// provider assigned to it. Failure at any step aborts the whole operation
// with no partial post created.
func (c *Client) Publish(ctx context.Context, content, imagePath string) (string, error) {
	accessToken, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return "", err
	}

	personURN, err := c.userInfo(ctx, accessToken)
	if err != nil {
		return "", err
	}

	assetURN := ""
	if imagePath != "" {
		uploadURL, asset, err := c.registerUpload(ctx, accessToken, personURN)
		if err != nil {
			return "", err
		}
		if err := c.uploadImage(ctx, accessToken, uploadURL, imagePath); err != nil {
			return "", err
		}
		assetURN = asset
	}

	return c.createPost(ctx, accessToken, personURN, content, assetURN)
}

// userInfo resolves the authenticated member URN the post is attributed to.
func (c *Client) userInfo(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/userinfo", nil)
	if err != nil {
		return "", &ExternalCallError{Step: "userinfo", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ExternalCallError{Step: "userinfo", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", callError("userinfo", resp)
	}

	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &ExternalCallError{Step: "userinfo", Err: err}
	}
	if info.Sub == "" {
		return "", &ExternalCallError{Step: "userinfo", Status: resp.StatusCode, Detail: "response missing member id"}
	}
	return "urn:li:person:" + info.Sub, nil
}

// registerUpload reserves an upload slot scoped to the member and returns
// the target URL for the image bytes plus the asset URN to reference.
func (c *Client) registerUpload(ctx context.Context, accessToken, personURN string) (string, string, error) {
	payload := map[string]interface{}{
		"registerUploadRequest": map[string]interface{}{
			"recipes":              []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":                personURN,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/assets?action=registerUpload", bytes.NewReader(body))
	if err != nil {
		return "", "", &ExternalCallError{Step: "register-upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", &ExternalCallError{Step: "register-upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", callError("register-upload", resp)
	}

	var result struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism struct {
				Request struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", &ExternalCallError{Step: "register-upload", Err: err}
	}
	uploadURL := result.Value.UploadMechanism.Request.UploadURL
	if uploadURL == "" || result.Value.Asset == "" {
		return "", "", &ExternalCallError{Step: "register-upload", Status: resp.StatusCode, Detail: "response missing upload target"}
	}
	return uploadURL, result.Value.Asset, nil
}

// uploadImage transfers the image bytes to the registered upload target.
func (c *Client) uploadImage(ctx context.Context, accessToken, uploadURL, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return &ExternalCallError{Step: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return &ExternalCallError{Step: "upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ExternalCallError{Step: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return callError("upload", resp)
	}
	return nil
}

// createPost issues the final publish call and extracts the external id
// from the X-RestLi-Id header, falling back to the body id field.
func (c *Client) createPost(ctx context.Context, accessToken, personURN, content, assetURN string) (string, error) {
	media := map[string]interface{}{
		"shareMediaCategory": "NONE",
	}
	if assetURN != "" {
		media["shareMediaCategory"] = "IMAGE"
		media["media"] = []map[string]interface{}{{
			"status": "READY",
			"media":  assetURN,
		}}
	}
	media["shareCommentary"] = map[string]string{"text": content}

	payload := map[string]interface{}{
		"author":         personURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": media,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", &ExternalCallError{Step: "create-post", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ExternalCallError{Step: "create-post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", callError("create-post", resp)
	}

	if id := resp.Header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return "", &ExternalCallError{Step: "create-post", Status: resp.StatusCode, Detail: "response missing post id"}
	}
	return created.ID, nil
}

// callError captures the provider's error payload for surfacing to the chat.
func callError(step string, resp *http.Response) *ExternalCallError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &ExternalCallError{Step: step, Status: resp.StatusCode, Detail: string(detail)}
}
