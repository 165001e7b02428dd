package engine

import (
	"fmt"
	"sync"

	"github.com/germanamz/phoenix/pkg/agent"
	"github.com/germanamz/phoenix/pkg/chattemplate"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/providers/ollama"
	"github.com/germanamz/phoenix/pkg/providers/openai"
	"github.com/germanamz/phoenix/pkg/providers/textproto"
)

// Built-in provider kinds.
const (
	KindOpenAI = "openai"
	KindOllama = "ollama"
)

// Backend is a completer together with the loop variant that drives it.
type Backend struct {
	Completer modeladapter.Completer
	Variant   agent.Variant
}

// ProviderFactory creates a Backend from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig) (Backend, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories[KindOpenAI] = newOpenAI
		factories[KindOllama] = newOllama
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func newOpenAI(cfg ProviderConfig) (Backend, error) {
	a := openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	if cfg.MaxTokens > 0 {
		a.MaxTokens = cfg.MaxTokens
	}
	a.Temperature = cfg.Temperature

	return Backend{Completer: a, Variant: agent.Structured}, nil
}

// newOllama drives a local model through the ChatML template and the
// text tool-call protocol.
func newOllama(cfg ProviderConfig) (Backend, error) {
	tpl := chattemplate.ChatML()

	gen, err := ollama.New(ollama.Options{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Stop:        tpl.Stop(),
	})
	if err != nil {
		return Backend{}, err
	}

	return Backend{Completer: textproto.New(gen, tpl), Variant: agent.TextProtocol}, nil
}

// buildBackend creates a Backend using the registered factory for cfg.Kind.
// When retries are configured the completer is wrapped with a
// RetryCompleter.
func buildBackend(cfg ProviderConfig) (Backend, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return Backend{}, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	b, err := factory(cfg)
	if err != nil {
		return Backend{}, fmt.Errorf("engine: provider %q: %w", cfg.Kind, err)
	}

	if cfg.Retry.MaxRetries > 0 {
		baseDelay, err := parseDuration(cfg.Retry.BaseDelay)
		if err != nil {
			return Backend{}, fmt.Errorf("engine: provider %q: invalid base_delay %q: %w", cfg.Kind, cfg.Retry.BaseDelay, err)
		}

		b.Completer = modeladapter.NewRetryCompleter(b.Completer, modeladapter.RetryOpts{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  baseDelay,
		})
	}

	return b, nil
}
