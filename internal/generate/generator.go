package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const systemPrompt = `You write short social-media posts. Given a topic, reply with the post text only.
If an illustration would help, add a final line starting with "IMAGE: " followed by a short image description.`

// Draft is the outcome of one generation call.
type Draft struct {
	Text        string
	ImagePrompt string // empty when the model suggested no illustration
}

// Generator calls an OpenAI-compatible chat-completions API for draft text
// and optionally fetches an illustration from an image API.
type Generator struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	imageBase  string // image API root; empty disables the image step
	imageDir   string
}

// New creates a generator. imageBase may be empty to disable images.
func New(baseURL, apiKey, model, imageBase, imageDir string) *Generator {
	return &Generator{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		imageBase:  strings.TrimRight(imageBase, "/"),
		imageDir:   imageDir,
	}
}

// Generate produces a draft for the topic. The IMAGE trailer line, when
// present, is split off into the image prompt.
func (g *Generator) Generate(ctx context.Context, topic string) (Draft, error) {
	payload := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": topic},
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Draft{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Draft{}, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Draft{}, fmt.Errorf("generation API returned %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Draft{}, fmt.Errorf("generation response decode failed: %w", err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return Draft{}, fmt.Errorf("generation API returned no content")
	}

	return splitImageTrailer(result.Choices[0].Message.Content), nil
}

// splitImageTrailer separates a trailing "IMAGE: ..." line from the draft text.
func splitImageTrailer(content string) Draft {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if prompt, ok := strings.CutPrefix(last, "IMAGE:"); ok && len(lines) > 1 {
		return Draft{
			Text:        strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n")),
			ImagePrompt: strings.TrimSpace(prompt),
		}
	}
	return Draft{Text: strings.TrimSpace(content)}
}

// FetchImage downloads an illustration for the prompt into imageDir and
// returns its path. Best-effort: any failure is logged and yields "", so
// the draft proceeds without an image.
func (g *Generator) FetchImage(ctx context.Context, prompt string) string {
	if g.imageBase == "" || prompt == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.imageBase+"/"+url.PathEscape(prompt), nil)
	if err != nil {
		log.Printf("⚠️ Image request build failed: %v", err)
		return ""
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ Image fetch failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ Image API returned %d, continuing without image", resp.StatusCode)
		return ""
	}

	if err := os.MkdirAll(g.imageDir, 0o755); err != nil {
		log.Printf("⚠️ Image dir create failed: %v", err)
		return ""
	}
	path := filepath.Join(g.imageDir, uuid.New().String()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		log.Printf("⚠️ Image file create failed: %v", err)
		return ""
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		log.Printf("⚠️ Image download failed: %v", err)
		os.Remove(path)
		return ""
	}
	return path
}
