package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"auto-replier-be/pkg/draft"

	"gopkg.in/yaml.v3"
)

// CandidatesFile lists backends in fallback order:
//
//	candidates:
//	  - kind: chat
//	    address: localhost:11434
//	  - kind: bridge
//	    address: localhost:5000
type CandidatesFile struct {
	Candidates []CandidateEntry `yaml:"candidates"`
}

type CandidateEntry struct {
	Kind    string `yaml:"kind"`
	Address string `yaml:"address"`
}

// Candidates returns the configured backends, or the built-in defaults when no
// candidates file is set.
func (c *Config) Candidates() (draft.Candidates, error) {
	if c.Model.CandidatesFile == "" {
		return draft.DefaultCandidates(), nil
	}
	return LoadCandidates(c.Model.CandidatesFile)
}

func LoadCandidates(path string) (draft.Candidates, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return draft.Candidates{}, fmt.Errorf("read candidates file: %w", err)
	}
	return ParseCandidates(b)
}

func ParseCandidates(b []byte) (draft.Candidates, error) {
	var file CandidatesFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return draft.Candidates{}, fmt.Errorf("decode candidates: %w", err)
	}

	list := make([]draft.Candidate, 0, len(file.Candidates))
	for i, e := range file.Candidates {
		addr := strings.TrimSpace(e.Address)
		if addr == "" {
			return draft.Candidates{}, fmt.Errorf("candidate %d: address is required", i)
		}
		switch strings.ToLower(strings.TrimSpace(e.Kind)) {
		case "chat", "primary_chat":
			list = append(list, draft.ChatCandidate(addr))
		case "bridge", "fallback_bridge":
			list = append(list, draft.BridgeCandidate(addr))
		default:
			return draft.Candidates{}, fmt.Errorf("candidate %d: unknown kind %q", i, e.Kind)
		}
	}
	if len(list) == 0 {
		return draft.Candidates{}, fmt.Errorf("candidates file lists no candidates")
	}
	return draft.NewCandidates(list...), nil
}
