package interfaces

import "context"

// CompletionRequest is a single prompt sent to a text-completion backend.
type CompletionRequest struct {
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// Completer turns a prompt into free text.
//
//go:generate mockgen -destination=mocks/mock_completer.go -package=mock_interfaces -source=completer.go
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
