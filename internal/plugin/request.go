// Package plugin handles versioned select-branches requests from config
// repository plugins and wraps the results in a response envelope.
package plugin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// SelectBranchesAPI is the plugin API this package serves.
	SelectBranchesAPI = "go.processor.configrepo.select-branches"

	// Version1 is the only supported request version.
	Version1 = "1.0"

	SuccessCode       = 200
	InternalErrorCode = 500
)

// Request is a plugin API call. Body holds the version-specific JSON
// payload as a string.
type Request struct {
	API        string `json:"api"`
	APIVersion string `json:"api_version"`
	Body       string `json:"body"`
}

// Response is the envelope returned to the plugin.
type Response struct {
	Code int    `json:"code"`
	Body string `json:"body"`
}

// SelectBranchesRequest asks for the branches of URL whose full ref names
// match Pattern. Backend optionally forces a lister.
type SelectBranchesRequest struct {
	URL      string `json:"url"`
	Pattern  string `json:"pattern"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Backend  string `json:"backend,omitempty"`
}

// DecodeError reports an invalid request payload. Field is empty when the
// payload is not valid JSON.
type DecodeError struct {
	Field string
	Msg   string
}

func (e *DecodeError) Error() string { return e.Msg }

func requiredField(name string) *DecodeError {
	return &DecodeError{Field: name, Msg: fmt.Sprintf("%q is a required field", name)}
}

// validate checks the fields every surface requires and compiles the
// pattern.
func (r SelectBranchesRequest) validate() (*regexp.Regexp, error) {
	if strings.TrimSpace(r.URL) == "" {
		return nil, requiredField("url")
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, &DecodeError{Field: "pattern", Msg: fmt.Sprintf("%q is not a valid pattern: %v", r.Pattern, err)}
	}
	return re, nil
}

// MessageHandler decodes the body of one API version.
type MessageHandler interface {
	Decode(body string) (SelectBranchesRequest, error)
}

// requestV1 decodes version 1.0 bodies.
type requestV1 struct{}

func (requestV1) Decode(body string) (SelectBranchesRequest, error) {
	var wire struct {
		URL      string  `json:"url"`
		Pattern  *string `json:"pattern"`
		Username string  `json:"username"`
		Password string  `json:"password"`
	}
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return SelectBranchesRequest{}, &DecodeError{Msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	if strings.TrimSpace(wire.URL) == "" {
		return SelectBranchesRequest{}, requiredField("url")
	}
	if wire.Pattern == nil {
		return SelectBranchesRequest{}, requiredField("pattern")
	}

	req := SelectBranchesRequest{
		URL:      wire.URL,
		Pattern:  *wire.Pattern,
		Username: strings.TrimSpace(wire.Username),
		Password: wire.Password,
	}
	if _, err := req.validate(); err != nil {
		return SelectBranchesRequest{}, err
	}
	return req, nil
}

// UnsupportedVersionError is returned for an API version with no handler.
type UnsupportedVersionError struct {
	API       string
	Version   string
	Supported []string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("Unsupported '%s' API version: %s. Supported versions: %v", e.API, e.Version, e.Supported)
}
