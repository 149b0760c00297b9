// Package gemini adapts the Gemini API to the assistant's Completer interface.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
)

// generator is the slice of *genai.Models the completer uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Completer struct {
	models generator
	model  string
}

// NewCompleter creates a Gemini API client for apiKey.
func NewCompleter(ctx context.Context, apiKey, model string) (*Completer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Completer{models: client.Models, model: model}, nil
}

func (c *Completer) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

var _ interfaces.Completer = (*Completer)(nil)
