package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/branches"
	"github.com/joestump/refselect/internal/db"
	"github.com/joestump/refselect/internal/gitprovider"
	"github.com/joestump/refselect/internal/material"
)

// Selection statuses written to the audit log.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ListerResolver picks the RefLister for a repository.
type ListerResolver interface {
	Resolve(repo gitprovider.RepoRef, preferred string) (gitprovider.RefLister, error)
}

// Recorder stores an audit record per selection.
type Recorder interface {
	InsertSelection(s *db.Selection) (int64, error)
}

// Publisher receives one JSON-encoded SelectionEvent per selection.
type Publisher interface {
	Publish(event string)
}

// SelectionEvent is the streamed form of an audited selection. ID is zero
// when the audit log is disabled.
type SelectionEvent struct {
	ID          int64   `json:"id"`
	PluginID    string  `json:"plugin_id"`
	URL         string  `json:"url"`
	Pattern     string  `json:"pattern"`
	Status      string  `json:"status"`
	BranchCount int     `json:"branch_count"`
	Error       *string `json:"error"`
	CreatedAt   string  `json:"created_at"`
}

// ListError wraps a failure to fetch the remote's references.
type ListError struct {
	Lister string
	Err    error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list refs with %s: %v", e.Lister, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// Processor serves select-branches requests.
type Processor struct {
	listers   ListerResolver
	recorder  Recorder
	publisher Publisher
	logger    *zap.Logger
	handlers  map[string]MessageHandler
	now       func() time.Time
}

// Option configures optional Processor dependencies.
type Option func(*Processor)

// WithPublisher streams every selection to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) {
		p.publisher = pub
	}
}

// NewProcessor creates a Processor. recorder may be nil to disable the
// audit log.
func NewProcessor(listers ListerResolver, recorder Recorder, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		listers:  listers,
		recorder: recorder,
		logger:   logger,
		handlers: map[string]MessageHandler{Version1: requestV1{}},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportedVersions returns the API versions with a registered handler.
func (p *Processor) SupportedVersions() []string {
	versions := make([]string, 0, len(p.handlers))
	for v := range p.handlers {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Process handles a plugin API call. Failures never escape as errors: they
// become an InternalErrorCode response with a {"message": "Error: ..."}
// body.
func (p *Processor) Process(ctx context.Context, pluginID string, req Request) Response {
	contexts, err := p.process(ctx, pluginID, req)
	if err != nil {
		p.logger.Warn("failed to handle message from plugin",
			zap.String("plugin_id", pluginID),
			zap.String("api", req.API),
			zap.String("api_version", req.APIVersion),
			zap.String("body", redactBody(req.Body)),
			zap.Error(err),
		)
		return errorResponse(err)
	}

	body, err := json.Marshal(contexts)
	if err != nil {
		return errorResponse(fmt.Errorf("encode branches: %w", err))
	}
	return Response{Code: SuccessCode, Body: string(body)}
}

func (p *Processor) process(ctx context.Context, pluginID string, req Request) ([]branches.BranchContext, error) {
	if req.API != SelectBranchesAPI {
		return nil, fmt.Errorf("no processor registered for API %q", req.API)
	}
	handler, ok := p.handlers[req.APIVersion]
	if !ok {
		return nil, &UnsupportedVersionError{API: req.API, Version: req.APIVersion, Supported: p.SupportedVersions()}
	}
	sbr, err := handler.Decode(req.Body)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, pluginID, sbr)
}

// Select lists the remote's references, keeps those matching the pattern
// and builds one branch context per match. A reference without a
// category segment fails the whole call with *branches.MalformedRefError.
func (p *Processor) Select(ctx context.Context, req SelectBranchesRequest) ([]branches.BranchContext, error) {
	return p.run(ctx, "", req)
}

func (p *Processor) run(ctx context.Context, pluginID string, req SelectBranchesRequest) ([]branches.BranchContext, error) {
	contexts, err := p.selectBranches(ctx, req)
	p.record(pluginID, req, len(contexts), err)
	return contexts, err
}

func (p *Processor) selectBranches(ctx context.Context, req SelectBranchesRequest) ([]branches.BranchContext, error) {
	pattern, err := req.validate()
	if err != nil {
		return nil, err
	}

	repo, err := gitprovider.ParseRepoRef(req.URL, req.Username, req.Password)
	if err != nil {
		return nil, &DecodeError{Field: "url", Msg: err.Error()}
	}

	lister, err := p.listers.Resolve(repo, req.Backend)
	if err != nil {
		return nil, &DecodeError{Field: "backend", Msg: err.Error()}
	}

	names, err := gitprovider.BranchesMatching(ctx, lister, repo, pattern)
	if err != nil {
		return nil, &ListError{Lister: lister.Name(), Err: err}
	}

	contexts, err := branches.Select(names, material.NewGitTemplate(req.URL, repo.Username))
	if err != nil {
		return nil, err
	}

	p.logger.Info("branches selected",
		zap.String("url", repo.RedactedURL()),
		zap.String("lister", lister.Name()),
		zap.String("pattern", req.Pattern),
		zap.Int("matched", len(contexts)),
	)
	return contexts, nil
}

func (p *Processor) record(pluginID string, req SelectBranchesRequest, count int, selErr error) {
	if p.recorder == nil && p.publisher == nil {
		return
	}
	s := &db.Selection{
		PluginID:    pluginID,
		URL:         material.RedactURL(req.URL),
		Pattern:     req.Pattern,
		Status:      StatusSuccess,
		BranchCount: count,
		CreatedAt:   p.now().UTC().Format(db.TimeLayout),
	}
	if selErr != nil {
		msg := selErr.Error()
		s.Status = StatusFailed
		s.Error = &msg
	}
	if p.recorder != nil {
		id, err := p.recorder.InsertSelection(s)
		if err != nil {
			p.logger.Warn("failed to record selection", zap.String("url", s.URL), zap.Error(err))
		} else {
			s.ID = id
		}
	}
	p.publish(s)
}

func (p *Processor) publish(s *db.Selection) {
	if p.publisher == nil {
		return
	}
	data, err := json.Marshal(SelectionEvent{
		ID:          s.ID,
		PluginID:    s.PluginID,
		URL:         s.URL,
		Pattern:     s.Pattern,
		Status:      s.Status,
		BranchCount: s.BranchCount,
		Error:       s.Error,
		CreatedAt:   s.CreatedAt,
	})
	if err != nil {
		p.logger.Warn("failed to encode selection event", zap.Error(err))
		return
	}
	p.publisher.Publish(string(data))
}

func errorResponse(err error) Response {
	body, _ := json.Marshal(map[string]string{"message": "Error: " + err.Error()})
	return Response{Code: InternalErrorCode, Body: string(body)}
}

// redactBody masks the password and URL credentials of a request body for
// logging. Bodies that are not JSON objects are not logged verbatim.
func redactBody(body string) string {
	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return fmt.Sprintf("<%d bytes, not a JSON object>", len(body))
	}
	if _, ok := fields["password"]; ok {
		fields["password"] = "*****"
	}
	if u, ok := fields["url"].(string); ok {
		fields["url"] = material.RedactURL(u)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return "<unprintable body>"
	}
	return string(out)
}
