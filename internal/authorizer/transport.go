package authorizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// jsonTokenTransport re-encodes token endpoint requests as JSON objects.
// It is only installed on the token endpoint client, so every request is a token request.
type jsonTokenTransport struct {
	base http.RoundTripper
}

// Compile-time check that jsonTokenTransport implements http.RoundTripper.
var _ http.RoundTripper = (*jsonTokenTransport)(nil)

// RoundTrip rewrites the form body of req as a JSON object.
func (t *jsonTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil {
		return t.base.RoundTrip(req)
	}

	// The clone gets a new body; the original is drained and closed here
	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	formData, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}

	jsonData := make(map[string]string, len(formData))
	for key := range formData {
		jsonData[key] = formData.Get(key)
	}

	jsonBody, err := json.Marshal(jsonData)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON request: %w", err)
	}

	newReq := req.Clone(req.Context())
	newReq.Body = io.NopCloser(bytes.NewReader(jsonBody))
	newReq.ContentLength = int64(len(jsonBody))
	newReq.Header.Set("Content-Type", "application/json")

	return t.base.RoundTrip(newReq)
}
