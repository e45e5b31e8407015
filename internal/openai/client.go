package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 90 * time.Second

	chatCompletionsPath   = "/v1/chat/completions"
	imageGenerationsPath  = "/v1/images/generations"
	promptSystemDirective = "You are a helpful assistant that generates prompts for creating images based on poetry. " +
		"You only need to provide the prompt for the image model. Do not include any additional text or instructions in your response."
)

var (
	// ErrUpstream wraps every failure mode of the OpenAI endpoints:
	// missing key, transport error, non-success status, malformed body.
	ErrUpstream = errors.New("openai: upstream request failed")
	// ErrMissingAPIKey indicates the client was built without an API key.
	ErrMissingAPIKey = errors.New("openai: api key is not set")
)

// ClientConfig bundles configuration for the OpenAI client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	ImageSize  string
	HTTPClient *http.Client
}

// Client calls the OpenAI chat-completion and image-synthesis endpoints.
// No call is ever retried; a failure aborts the caller's pipeline.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	imageModel string
	imageSize  string
	httpClient *http.Client
}

// NewClient constructs a Client with sane defaults.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		imageSize:  cfg.ImageSize,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ComposePrompt asks the chat-completion endpoint for an image-generation
// prompt matching the verse in its stanza context.
func (c *Client) ComposePrompt(ctx context.Context, verse, stanza string) (string, error) {
	userTurn := fmt.Sprintf(
		"Create a detailed and vivid image prompt for the following verse of a poem: %q. "+
			"Ensure the prompt aligns with the stanza:\n%q\n\n"+
			"The image should be realistic, visually striking, and directly related to the verse. "+
			"Avoid including any text in the image.",
		verse, stanza)

	request := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: promptSystemDirective},
			{Role: "user", Content: userTurn},
		},
		Temperature: 0.7,
	}

	var response chatResponse
	if err := c.post(ctx, chatCompletionsPath, request, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: chat completion returned no choices", ErrUpstream)
	}
	return response.Choices[0].Message.Content, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage submits the prompt to the image-synthesis endpoint and
// returns the transient URL of the single generated square image. The URL
// is short-lived and must be downloaded promptly.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	request := imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   c.imageSize,
	}

	var response imageResponse
	if err := c.post(ctx, imageGenerationsPath, request, &response); err != nil {
		return "", err
	}
	if len(response.Data) == 0 || response.Data[0].URL == "" {
		return "", fmt.Errorf("%w: image generation returned no url", ErrUpstream)
	}
	return response.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: %v", ErrUpstream, ErrMissingAPIKey)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned %d - %s", ErrUpstream, path, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}
