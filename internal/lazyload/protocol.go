package lazyload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sap/internal/model"
)

// TracerName is the instrumentation scope used for request spans.
const TracerName = "github.com/roach88/sap/internal/lazyload"

// QueryFunc serves a validated request. It receives the declared scope,
// the conditions, the plan-only flag and the id-type set, and returns raw
// objects plus an optional plan that replaces the generated one.
//
// Returning an error (Decline is the usual way) or panicking declines the
// request.
type QueryFunc func(ctx context.Context, scope Scope, conditions []Condition, planOnly bool, idTypes IDTypeSet) ([]model.Object, string, error)

// Response is the outcome of an executed request.
//
// A declined request is still a Response: Error is set, Objects is empty and
// Plan describes what was attempted.
type Response struct {
	RequestID string
	Objects   []model.Object
	Plan      string
	Error     *RequestError
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Protocol) { p.logger = l }
}

// WithTracer sets the tracer. Default: otel.Tracer(TracerName).
func WithTracer(t trace.Tracer) Option {
	return func(p *Protocol) { p.tracer = t }
}

// WithIDGenerator sets the request-id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Protocol) { p.ids = g }
}

// WithSink records every handled request.
func WithSink(s RequestSink) Option {
	return func(p *Protocol) { p.sink = s }
}

// WithNow substitutes the wall clock used for Record.ReceivedAt.
func WithNow(now func() time.Time) Option {
	return func(p *Protocol) { p.now = now }
}

// Protocol mediates between callers and a provider's QueryFunc.
//
// Thread-safety: a Protocol is immutable after NewProtocol and safe for
// concurrent use; the QueryFunc must be too.
type Protocol struct {
	scopes []Scope
	fn     QueryFunc
	logger *slog.Logger
	tracer trace.Tracer
	ids    IDGenerator
	sink   RequestSink
	now    func() time.Time
}

// NewProtocol validates the declared scopes and builds a Protocol. A nil
// fn is allowed: every request is then rejected with LAZY_LOAD_UNSUPPORTED.
func NewProtocol(scopes []Scope, fn QueryFunc, opts ...Option) (*Protocol, error) {
	if err := ValidateScopes(scopes); err != nil {
		return nil, err
	}
	p := &Protocol{
		scopes: slices.Clone(scopes),
		fn:     fn,
		logger: slog.Default(),
		tracer: otel.Tracer(TracerName),
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Scopes returns a copy of the declared scopes.
func (p *Protocol) Scopes() []Scope {
	return slices.Clone(p.scopes)
}

// Supported reports whether the provider has a query function.
func (p *Protocol) Supported() bool {
	return p.fn != nil
}

// Validate checks req against the declared scopes.
func (p *Protocol) Validate(req Request) error {
	return Validate(req, p.scopes)
}

// Execute validates and serves req.
//
// Validation failures and LAZY_LOAD_UNSUPPORTED are returned as a
// *RequestError with a nil Response; the query function is not called. A
// plan-only request returns the plan and no objects, also without calling
// the query function. Query function failures are reported in
// Response.Error. Served objects are canonicalized.
func (p *Protocol) Execute(ctx context.Context, req Request) (*Response, error) {
	id := p.ids.Generate()
	rec := Record{
		RequestID:  id,
		ReceivedAt: p.now().UTC(),
		ScopeType:  req.Scope.Type,
		Conditions: conditionsText(req.Conditions),
		PlanOnly:   req.PlanOnly,
	}

	ctx, span := p.tracer.Start(ctx, "lazyload.execute", trace.WithAttributes(
		attribute.String("sap.request_id", id),
		attribute.String("sap.scope_type", req.Scope.Type),
		attribute.Bool("sap.plan_only", req.PlanOnly),
		attribute.Int("sap.conditions", len(req.Conditions)),
	))
	defer span.End()

	logger := p.logger.With("request_id", id, "type", req.Scope.Type)

	if p.fn == nil {
		err := requestErr(ErrCodeUnsupported, "", "lazy loading not supported by this provider")
		p.reject(ctx, span, logger, rec, err)
		return nil, err
	}

	scope, err := resolve(req, p.scopes)
	if err != nil {
		var re *RequestError
		errors.As(err, &re)
		p.reject(ctx, span, logger, rec, re)
		return nil, err
	}
	req.Scope = scope

	resp := &Response{
		RequestID: id,
		Objects:   []model.Object{},
		Plan:      Describe(req),
	}
	rec.Plan = resp.Plan

	if req.PlanOnly {
		logger.Debug("lazy load planned", "plan", resp.Plan)
		rec.Outcome = OutcomePlanOnly
		p.record(ctx, logger, rec)
		return resp, nil
	}

	logger.Info("delegating lazy load",
		"conditions", len(req.Conditions),
		"id_types", len(req.IDTypes),
	)
	start := time.Now()
	objects, plan, err := p.call(ctx, scope, req)
	if err != nil {
		resp.Error = declined(err)
		p.fail(ctx, span, logger, rec, resp)
		return resp, nil
	}
	if plan != "" {
		resp.Plan = plan
		rec.Plan = plan
	}

	canon, err := model.Canonicalize(objects)
	if err != nil {
		resp.Error = &RequestError{
			Code:    ErrCodeInvalidResult,
			Message: "query function returned invalid objects",
			Err:     err,
		}
		p.fail(ctx, span, logger, rec, resp)
		return resp, nil
	}
	resp.Objects = canon

	span.SetAttributes(attribute.Int("sap.object_count", len(canon)))
	logger.Info("lazy load completed",
		"objects", len(canon),
		"duration", time.Since(start),
	)
	logger.Debug("lazy load plan", "plan", resp.Plan)

	rec.Outcome = OutcomeServed
	rec.ObjectCount = len(canon)
	p.record(ctx, logger, rec)
	return resp, nil
}

// call invokes the query function, turning a panic into an error.
func (p *Protocol) call(ctx context.Context, scope Scope, req Request) (objects []model.Object, plan string, err error) {
	defer func() {
		if r := recover(); r != nil {
			objects, plan = nil, ""
			err = fmt.Errorf("query function panicked: %v", r)
		}
	}()
	return p.fn(ctx, scope, slices.Clone(req.Conditions), req.PlanOnly, slices.Clone(req.IDTypes))
}

func declined(err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) && re.Code == ErrCodeProviderDeclined {
		return re
	}
	return &RequestError{Code: ErrCodeProviderDeclined, Message: err.Error(), Err: err}
}

func (p *Protocol) reject(ctx context.Context, span trace.Span, logger *slog.Logger, rec Record, err *RequestError) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Code))
	logger.Warn("lazy load rejected", "code", err.Code, "error", err.Message)
	rec.Outcome = string(err.Code)
	p.record(ctx, logger, rec)
}

func (p *Protocol) fail(ctx context.Context, span trace.Span, logger *slog.Logger, rec Record, resp *Response) {
	span.RecordError(resp.Error)
	span.SetStatus(codes.Error, string(resp.Error.Code))
	logger.Error("provider declined lazy load", "code", resp.Error.Code, "error", resp.Error.Message)
	rec.Outcome = string(resp.Error.Code)
	p.record(ctx, logger, rec)
}

func (p *Protocol) record(ctx context.Context, logger *slog.Logger, rec Record) {
	if p.sink == nil {
		return
	}
	if err := p.sink.RecordLazyLoad(ctx, rec); err != nil {
		logger.Warn("lazy load sink failed", "error", err)
	}
}
