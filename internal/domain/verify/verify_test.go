package verify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/verify"
)

const page = `<!DOCTYPE html><html><head><style>h1{color:red}</style></head><body><h1>Hi</h1><img src="rick.jpg"></body></html>`

func ok(digest, payload string) (verify.Response, verify.Response) {
	return verify.Response{StatusCode: http.StatusOK, Digest: digest, ProcessTime: 40 * time.Millisecond},
		verify.Response{StatusCode: http.StatusOK, Payload: payload}
}

func TestDigest(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", verify.Digest("abc"))
}

func TestVerify_Accepts(t *testing.T) {
	e := verify.NewEngine(verify.WithAllowedPlaceholders("rick.jpg"))
	commit, reveal := ok(verify.Digest(page), page)

	sol, err := e.Verify(context.Background(), "solver-a", commit, reveal)
	require.NoError(t, err)
	assert.Equal(t, "solver-a", sol.SolverID)
	assert.Equal(t, page, sol.Payload)
	assert.Equal(t, 40*time.Millisecond, sol.Latency)
}

func TestVerify_DigestIsCaseInsensitive(t *testing.T) {
	e := verify.NewEngine(verify.WithAllowedPlaceholders("rick.jpg"))
	commit, reveal := ok(strings.ToUpper(verify.Digest(page)), page)

	_, err := e.Verify(context.Background(), "solver-a", commit, reveal)
	assert.NoError(t, err)
}

func TestVerify_HashMismatch(t *testing.T) {
	e := verify.NewEngine(verify.WithAllowedPlaceholders("rick.jpg"))
	commit, reveal := ok(verify.Digest(page), page+" ")

	_, err := e.Verify(context.Background(), "solver-d", commit, reveal)
	assert.ErrorIs(t, err, model.ErrHashMismatch)
}

func TestVerify_HashCheckedBeforeStructure(t *testing.T) {
	e := verify.NewEngine()
	commit, reveal := ok(verify.Digest("something else"), "not markup")

	_, err := e.Verify(context.Background(), "solver-d", commit, reveal)
	assert.ErrorIs(t, err, model.ErrHashMismatch)
	assert.NotErrorIs(t, err, model.ErrInvalidPayload)
}

func TestVerify_Absent(t *testing.T) {
	e := verify.NewEngine()

	cases := []struct {
		name    string
		commit  int
		reveal  int
		timeout bool
	}{
		{"commit timeout", http.StatusRequestTimeout, http.StatusOK, true},
		{"reveal failure", http.StatusOK, http.StatusInternalServerError, false},
		{"reveal gateway timeout", http.StatusOK, http.StatusGatewayTimeout, true},
		{"unreachable", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			commit := verify.Response{StatusCode: tc.commit, Digest: verify.Digest(page)}
			reveal := verify.Response{StatusCode: tc.reveal, Payload: page}
			_, err := e.Verify(context.Background(), "solver-c", commit, reveal)
			require.ErrorIs(t, err, verify.ErrAbsent)
			assert.Equal(t, tc.timeout, errors.Is(err, model.ErrTransportTimeout))
		})
	}
}

func TestValidate_InvalidPayload(t *testing.T) {
	e := verify.NewEngine(verify.WithAllowedPlaceholders("rick.jpg"), verify.WithMaxPayloadBytes(4096))

	cases := map[string]string{
		"empty":         "   ",
		"plain text":    "I could not render this page, sorry.",
		"remote script": `<html><body><script src="https://evil.example/x.js"></script></body></html>`,
		"relative img":  `<html><body><img src="images/logo.png"></body></html>`,
		"oversized":     "<p>" + strings.Repeat("a", 5000) + "</p>",
		"empty fence":   "```html",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Validate(context.Background(), payload)
			assert.ErrorIs(t, err, model.ErrInvalidPayload)
		})
	}
}

func TestValidate_AllowedReferences(t *testing.T) {
	e := verify.NewEngine(verify.WithAllowedPlaceholders("rick.jpg", "https://placehold.co/"))

	cases := []string{
		`<div><img src="data:image/png;base64,iVBORw0KGgo="></div>`,
		`<div><img src="https://placehold.co/600x400"></div>`,
		`<div><img src="/static/rick.jpg"></div>`,
		`<a href="https://example.com/page">link</a>`,
		`<svg><use href="#icon"></use></svg>`,
	}
	for _, payload := range cases {
		_, err := e.Validate(context.Background(), payload)
		assert.NoError(t, err, payload)
	}
}

func TestValidate_UnwrapsCodeFence(t *testing.T) {
	e := verify.NewEngine()
	payload := "```html\n<html><body><p>fenced</p></body></html>\n```"

	markup, err := e.Validate(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "<html><body><p>fenced</p></body></html>", markup)

	// Digest still covers the raw reveal.
	commit, reveal := ok(verify.Digest(payload), payload)
	sol, err := e.Verify(context.Background(), "s", commit, reveal)
	require.NoError(t, err)
	assert.Equal(t, markup, sol.Payload)
}

func TestExtractMarkup(t *testing.T) {
	assert.Equal(t, "<p>x</p>", verify.ExtractMarkup("  <p>x</p>\n"))
	assert.Equal(t, "<p>x</p>", verify.ExtractMarkup("```\n<p>x</p>\n```"))
	assert.Equal(t, "<p>x</p>", verify.ExtractMarkup("```html\n<p>x</p>"))
}

func TestHTTPChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := &verify.HTTPChecker{Client: srv.Client(), Timeout: time.Second}
	e := verify.NewEngine(verify.WithResourceChecker(checker))

	_, err := e.Validate(context.Background(), `<img src="`+srv.URL+`/logo.png">`)
	assert.NoError(t, err)

	_, err = e.Validate(context.Background(), `<img src="`+srv.URL+`/missing.png">`)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)
}
