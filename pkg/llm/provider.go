package llm

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Option allows for optional parameters like Temperature, TopP, etc.
type Option func(*Options)

type Options struct {
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(p float64) Option {
	return func(o *Options) {
		o.TopP = p
	}
}

func WithRepeatPenalty(penalty float64) Option {
	return func(o *Options) {
		o.RepeatPenalty = penalty
	}
}

// Apply folds opts over the defaults and returns the result.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}
