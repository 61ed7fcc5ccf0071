package draft

import "fmt"

// Kind selects the protocol spoken by a candidate backend.
type Kind int

const (
	// PrimaryChat speaks the streamed NDJSON chat protocol.
	PrimaryChat Kind = iota
	// FallbackBridge speaks the plain-text bridge protocol.
	FallbackBridge
)

func (k Kind) String() string {
	switch k {
	case PrimaryChat:
		return "primary_chat"
	case FallbackBridge:
		return "fallback_bridge"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate is one backend the client may attempt. Order in a candidate list
// is the fallback priority.
type Candidate struct {
	Kind         Kind
	Address      string // host:port
	ProbePath    string
	GeneratePath string
}

const (
	ChatProbePath      = "/api/version"
	ChatGeneratePath   = "/api/chat"
	BridgeProbePath    = "/"
	BridgeGeneratePath = "/draft"
)

// BaseURL is the scheme and address without a path.
func (c Candidate) BaseURL() string {
	return "http://" + c.Address
}

func (c Candidate) ProbeURL() string {
	return c.BaseURL() + c.ProbePath
}

func (c Candidate) GenerateURL() string {
	return c.BaseURL() + c.GeneratePath
}

func (c Candidate) String() string {
	return c.Kind.String() + "@" + c.Address
}

// ChatCandidate builds a PrimaryChat candidate for address.
func ChatCandidate(address string) Candidate {
	return Candidate{Kind: PrimaryChat, Address: address, ProbePath: ChatProbePath, GeneratePath: ChatGeneratePath}
}

// BridgeCandidate builds a FallbackBridge candidate for address.
func BridgeCandidate(address string) Candidate {
	return Candidate{Kind: FallbackBridge, Address: address, ProbePath: BridgeProbePath, GeneratePath: BridgeGeneratePath}
}

// Candidates is an immutable, ordered candidate list.
type Candidates struct {
	list []Candidate
}

// NewCandidates copies list; later changes to list do not affect the result.
func NewCandidates(list ...Candidate) Candidates {
	return Candidates{list: append([]Candidate(nil), list...)}
}

// All returns the candidates in priority order.
func (c Candidates) All() []Candidate {
	return append([]Candidate(nil), c.list...)
}

// OfKind returns the candidates of kind k, keeping priority order.
func (c Candidates) OfKind(k Kind) []Candidate {
	var out []Candidate
	for _, cand := range c.list {
		if cand.Kind == k {
			out = append(out, cand)
		}
	}
	return out
}

func (c Candidates) Len() int {
	return len(c.list)
}

// DefaultCandidates is the compiled-in list: two local chat servers, then the
// bridge.
func DefaultCandidates() Candidates {
	return NewCandidates(
		ChatCandidate("localhost:11434"),
		ChatCandidate("localhost:11500"),
		BridgeCandidate("localhost:5000"),
	)
}
