package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a provider instance from options.
type Factory func(opts Options) Provider

// ProviderMetadata contains information about a provider
type ProviderMetadata struct {
	Name          string
	Aliases       []string
	Description   string
	ModelPrefixes []string // e.g., ["claude-", "gpt-"]
	Priority      int      // Higher priority = checked first
}

type registration struct {
	factory  Factory
	metadata ProviderMetadata
}

// ProviderRegistry maps provider tags to factories.
type ProviderRegistry struct {
	entries map[string]registration
	aliases map[string]string
	mutex   sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		entries: make(map[string]registration),
		aliases: make(map[string]string),
	}
}

// DefaultRegistry returns a registry holding the anthropic, openai and
// google providers.
func DefaultRegistry() *ProviderRegistry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(r.Register(ProviderMetadata{
		Name:          "anthropic",
		Aliases:       []string{"claude"},
		Description:   "Anthropic Messages API",
		ModelPrefixes: []string{"claude-"},
		Priority:      10,
	}, func(opts Options) Provider { return NewAnthropicProvider(opts) }))

	must(r.Register(ProviderMetadata{
		Name:          "openai",
		Description:   "OpenAI chat completions",
		ModelPrefixes: openAIPrefixes,
		Priority:      10,
	}, func(opts Options) Provider { return NewOpenAIProvider(opts) }))

	must(r.Register(ProviderMetadata{
		Name:          "google",
		Aliases:       []string{"gemini"},
		Description:   "Google Gemini",
		ModelPrefixes: []string{"gemini-"},
		Priority:      5,
	}, func(opts Options) Provider { return NewGoogleProvider(opts) }))

	return r
}

// Register adds a provider factory under its name and aliases.
func (r *ProviderRegistry) Register(metadata ProviderMetadata, factory Factory) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := strings.ToLower(metadata.Name)
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	for _, alias := range metadata.Aliases {
		if _, exists := r.aliases[strings.ToLower(alias)]; exists {
			return fmt.Errorf("provider alias %s already registered", alias)
		}
	}

	r.entries[name] = registration{factory: factory, metadata: metadata}
	r.aliases[name] = name
	for _, alias := range metadata.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

// Canonical resolves a provider tag or alias to its registered name.
func (r *ProviderRegistry) Canonical(tag string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	name, ok := r.aliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return "", fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, tag, strings.Join(r.namesLocked(), ", "))
	}
	return name, nil
}

// Create builds a provider for tag.
func (r *ProviderRegistry) Create(tag string, opts Options) (Provider, error) {
	name, err := r.Canonical(tag)
	if err != nil {
		return nil, err
	}

	r.mutex.RLock()
	entry := r.entries[name]
	r.mutex.RUnlock()

	return entry.factory(opts), nil
}

// FindProvider returns the name of the highest priority provider whose
// model prefixes match modelName.
func (r *ProviderRegistry) FindProvider(modelName string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var candidates []ProviderMetadata
	for name, entry := range r.entries {
		for _, prefix := range entry.metadata.ModelPrefixes {
			if strings.HasPrefix(strings.ToLower(modelName), prefix) {
				md := entry.metadata
				md.Name = name
				candidates = append(candidates, md)
				break
			}
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no provider serves model %q", ErrUnknownProvider, modelName)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates[0].Name, nil
}

// Names returns the registered provider names, sorted.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.namesLocked()
}

// Metadata returns the metadata of every registered provider, highest
// priority first.
func (r *ProviderRegistry) Metadata() []ProviderMetadata {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []ProviderMetadata
	for _, entry := range r.entries {
		out = append(out, entry.metadata)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *ProviderRegistry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
