// Package verify checks revealed solver payloads against their commitments.
//
// A reveal is accepted only when both transport phases succeeded, the digest
// of the raw revealed payload equals the committed digest, and the payload is
// well-formed markup whose resource references are allowed.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/okian/genie/internal/domain/model"
)

const defaultMaxPayloadBytes = 1 << 20

// Digest returns the lowercase hex SHA-256 of payload.
func Digest(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Response is one solver's answer in a single transport phase.
type Response struct {
	StatusCode  int
	Digest      string // commit phase
	Payload     string // reveal phase
	ProcessTime time.Duration
}

// ResourceChecker reports whether a remote reference can be fetched.
type ResourceChecker interface {
	Resolves(ctx context.Context, ref string) bool
}

// Engine validates commit/reveal pairs.
type Engine struct {
	allowed  []string
	checker  ResourceChecker
	maxBytes int
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxBytes: defaultMaxPayloadBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify returns the Solution for solverID when commit and reveal agree.
// The digest is computed over the raw reveal payload; the solution carries
// the unwrapped markup.
func (e *Engine) Verify(ctx context.Context, solverID string, commit, reveal Response) (model.Solution, error) {
	if err := checkStatus("commit", commit.StatusCode); err != nil {
		return model.Solution{}, err
	}
	if err := checkStatus("reveal", reveal.StatusCode); err != nil {
		return model.Solution{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(commit.Digest), Digest(reveal.Payload)) {
		return model.Solution{}, fmt.Errorf("%w: solver %s", model.ErrHashMismatch, solverID)
	}
	markup, err := e.Validate(ctx, reveal.Payload)
	if err != nil {
		return model.Solution{}, err
	}
	return model.Solution{
		SolverID: solverID,
		Payload:  markup,
		Latency:  commit.ProcessTime,
	}, nil
}

func checkStatus(phase string, code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w: %s status %d", ErrAbsent, model.ErrTransportTimeout, phase, code)
	default:
		return fmt.Errorf("%w: %s status %d", ErrAbsent, phase, code)
	}
}

// Validate unwraps payload and checks that it is sane markup.
// It returns the unwrapped markup or an error wrapping model.ErrInvalidPayload.
func (e *Engine) Validate(ctx context.Context, payload string) (string, error) {
	if len(payload) > e.maxBytes {
		return "", fmt.Errorf("%w: payload of %d bytes exceeds %d", model.ErrInvalidPayload, len(payload), e.maxBytes)
	}
	markup := ExtractMarkup(payload)
	if markup == "" {
		return "", fmt.Errorf("%w: empty markup", model.ErrInvalidPayload)
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrInvalidPayload, err)
	}

	elements := 0
	var badRef string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "html", "head", "body":
		default:
			elements++
		}
		for _, ref := range resourceRefs(n) {
			if !e.allowedRef(ctx, ref) {
				badRef = ref
				return false
			}
		}
		return true
	})

	if badRef != "" {
		return "", fmt.Errorf("%w: disallowed resource %q", model.ErrInvalidPayload, badRef)
	}
	if elements == 0 {
		return "", fmt.Errorf("%w: no markup elements", model.ErrInvalidPayload)
	}
	return markup, nil
}

// ExtractMarkup strips a surrounding Markdown code fence, if any.
func ExtractMarkup(payload string) string {
	s := strings.TrimSpace(payload)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, including a language tag.
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return ""
	}
	body := s[nl+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// resourceAttrs lists, per element, the attributes that make the browser load a resource.
var resourceAttrs = map[string][]string{ //nolint:gochecknoglobals // read-only lookup table
	"img":    {"src"},
	"script": {"src"},
	"link":   {"href"},
	"source": {"src"},
	"iframe": {"src"},
	"video":  {"src", "poster"},
	"audio":  {"src"},
	"embed":  {"src"},
	"object": {"data"},
	"input":  {"src"},
}

func resourceRefs(n *html.Node) []string {
	keys, ok := resourceAttrs[n.Data]
	if !ok {
		return nil
	}
	var refs []string
	for _, a := range n.Attr {
		for _, k := range keys {
			if a.Key == k {
				refs = append(refs, strings.TrimSpace(a.Val))
			}
		}
	}
	return refs
}

func (e *Engine) allowedRef(ctx context.Context, ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return true
	}
	for _, p := range e.allowed {
		if ref == p || strings.HasPrefix(ref, p) || strings.HasSuffix(ref, "/"+p) {
			return true
		}
	}
	lower := strings.ToLower(ref)
	if e.checker != nil && (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
		return e.checker.Resolves(ctx, ref)
	}
	return false
}
