// Package invoker sends one signed query to the remote cloud-operations function and parses its reply.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cchalm/cloudops-assistant/internal/config"
	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/cchalm/cloudops-assistant/internal/reply"
	"github.com/cchalm/cloudops-assistant/internal/transport"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type queryRequest struct {
	Query string `json:"query"`
}

// Invoker turns a user query into one authenticated POST to a fixed endpoint
type Invoker struct {
	client   *http.Client
	endpoint string

	tracer  trace.Tracer
	metrics *metrics.Recorder
	log     *logger.Logger
}

type Option func(*Invoker)

func WithTracer(tracer trace.Tracer) Option {
	return func(inv *Invoker) { inv.tracer = tracer }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(inv *Invoker) { inv.metrics = recorder }
}

func WithLogger(log *logger.Logger) Option {
	return func(inv *Invoker) { inv.log = log }
}

// New creates an invoker that sends requests through client. The client's transport is responsible for signing.
func New(client *http.Client, endpoint string, opts ...Option) *Invoker {
	inv := &Invoker{
		client:   client,
		endpoint: endpoint,
		tracer:   noop.NewTracerProvider().Tracer(""),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// NewFromConfig validates cfg and builds an invoker whose requests are SigV4 signed for Lambda. Missing credentials
// are reported as a *config.ConfigError before any request is attempted.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*Invoker, error) {
	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := &http.Client{
		Transport: transport.WithSigning(nil, awsCfg.Credentials, config.SigningService, awsCfg.Region),
	}
	return New(client, cfg.EndpointURL, opts...), nil
}

// Endpoint returns the URL queries are sent to
func (inv *Invoker) Endpoint() string {
	return inv.endpoint
}

// Invoke sends query and returns the decoded reply. Any JSON object is a payload, whatever the status code, unless
// the status is non-2xx and the object has no reply, in which case a *RemoteError is returned with the payload.
// Transport and decoding failures are returned as *TransportError. There are no retries.
func (inv *Invoker) Invoke(ctx context.Context, query string) (reply.Payload, error) {
	ctx, span := inv.tracer.Start(ctx, "cloudops.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", inv.endpoint),
			attribute.Int("cloudops.query.length", len(query)),
		),
	)
	defer span.End()

	start := time.Now()
	payload, err := inv.invoke(ctx, query)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch err.(type) {
	case nil:
		if !payload.HasReply() {
			outcome = metrics.OutcomeEmptyReply
		}
	case *RemoteError:
		outcome = metrics.OutcomeRemoteError
	default:
		outcome = metrics.OutcomeTransport
	}
	inv.metrics.ObserveInvocation(outcome, elapsed)

	span.SetAttributes(
		attribute.Int("http.response.status_code", payload.StatusCode),
		attribute.String("cloudops.outcome", outcome),
	)
	fields := logrus.Fields{"status": payload.StatusCode, "elapsed": elapsed.String(), "outcome": outcome}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields["error"] = err.Error()
		inv.log.Warn("remote invocation failed", fields)
		return payload, err
	}
	inv.log.Debug("remote invocation finished", fields)
	return payload, nil
}

func (inv *Invoker) invoke(ctx context.Context, query string) (reply.Payload, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return reply.Payload{}, &TransportError{Op: "build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inv.endpoint, bytes.NewReader(body))
	if err != nil {
		return reply.Payload{}, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := inv.client.Do(req)
	if err != nil {
		return reply.Payload{}, &TransportError{Op: "send request", Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply.Payload{StatusCode: resp.StatusCode}, &TransportError{Op: "read response", Err: err}
	}

	payload, err := reply.Parse(b)
	payload.StatusCode = resp.StatusCode
	if err != nil {
		return payload, &TransportError{Op: "decode response", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}

	if (resp.StatusCode < 200 || resp.StatusCode > 299) && !payload.HasReply() {
		return payload, &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(payload)}
	}
	return payload, nil
}

// remoteMessage picks the explanation out of an error body. Lambda function URLs use "Message" for IAM rejections;
// handler errors use "errorMessage".
func remoteMessage(p reply.Payload) string {
	for _, name := range []string{"Message", "message", "errorMessage", "error"} {
		if v := p.Get(name); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
