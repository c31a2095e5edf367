package stages

import (
	"context"
	"errors"

	"github.com/supernovae/synesis/internal/llmclient"
)

// fakeLLM is a scripted llmclient.Client: it returns Content verbatim
// (or Err) regardless of the request, and records the last request it
// saw for assertions on prompt shape.
type fakeLLM struct {
	Content string
	Err     error
	lastReq llmclient.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llmclient.Request) (*llmclient.Response, error) {
	f.lastReq = req
	if f.Err != nil {
		return nil, f.Err
	}
	return &llmclient.Response{Content: f.Content}, nil
}

func (f *fakeLLM) Stream(_ context.Context, _ llmclient.Request) (<-chan llmclient.Chunk, error) {
	return nil, errors.New("fakeLLM: Stream not supported")
}
