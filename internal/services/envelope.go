package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Envelope types.
const (
	EnvelopeChat        = "chat"
	EnvelopeExplanation = "explanation"
	EnvelopeCode        = "code"
)

// AI error categories surfaced in terminal envelopes.
const (
	AIErrorQuota   = "quota"
	AIErrorAuth    = "auth"
	AIErrorNetwork = "network"
	AIErrorConfig  = "config"
	AIErrorUnknown = "unknown"
)

// FileNode is one entry of a generated file tree.
type FileNode struct {
	Contents string `json:"contents"`
}

// Envelope is the structured result of an AI request. If Type is "code",
// FileTree must be present and every node must carry non-empty contents.
type Envelope struct {
	Type         string              `json:"type"`
	Text         string              `json:"text"`
	FileTree     map[string]FileNode `json:"fileTree,omitempty"`
	BuildCommand string              `json:"buildCommand,omitempty"`
	StartCommand string              `json:"startCommand,omitempty"`
	Note         string              `json:"note,omitempty"`
	Error        bool                `json:"error,omitempty"`
	ErrorType    string              `json:"errorType,omitempty"`
}

var fenceRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```\\s*$")

// StripCodeFences removes a surrounding fenced code block, if any.
func StripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRegex.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// ParseEnvelope parses backend output into an Envelope. The output is
// expected to be JSON, possibly wrapped in fenced code-block markers.
// Malformed shapes fail with an error; the orchestrator degrades those to a
// plain chat envelope rather than propagating them.
func ParseEnvelope(raw string) (*Envelope, error) {
	cleaned := StripCodeFences(raw)

	var env Envelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, fmt.Errorf("invalid envelope JSON: %w", err)
	}

	if err := validateEnvelope(&env); err != nil {
		return nil, err
	}

	return &env, nil
}

func validateEnvelope(env *Envelope) error {
	switch env.Type {
	case EnvelopeChat, EnvelopeExplanation:
		if env.Text == "" {
			return errors.New("envelope missing text")
		}
	case EnvelopeCode:
		if len(env.FileTree) == 0 {
			return errors.New("code envelope missing fileTree")
		}
		for path, node := range env.FileTree {
			if strings.TrimSpace(node.Contents) == "" {
				return fmt.Errorf("file %q has empty contents", path)
			}
		}
	default:
		return fmt.Errorf("unknown envelope type %q", env.Type)
	}
	return nil
}
