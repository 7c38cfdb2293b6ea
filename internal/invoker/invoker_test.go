package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cchalm/cloudops-assistant/internal/config"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/cchalm/cloudops-assistant/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	header http.Header
	body   []byte
}

// fakeLambda is a stand-in for the remote function that records every request it receives
type fakeLambda struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (f *fakeLambda) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, header: r.Header.Clone(), body: b})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func newSignedInvoker(t *testing.T, f *fakeLambda, opts ...Option) *Invoker {
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	creds := credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
	signing := transport.WithSigning(nil, creds, config.SigningService, "us-east-1").
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) })
	return New(&http.Client{Transport: signing}, server.URL, opts...)
}

func TestInvoke_SendsOneSignedQuery(t *testing.T) {
	f := &fakeLambda{status: http.StatusOK, body: `{"reply":"2 instances found"}`}
	inv := newSignedInvoker(t, f)

	payload, err := inv.Invoke(context.Background(), `list ec2 instances "prod" & <dev>`)
	require.NoError(t, err)

	assert.Equal(t, "2 instances found", payload.Reply)
	assert.Equal(t, http.StatusOK, payload.StatusCode)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(req.header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240102/us-east-1/lambda/aws4_request"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(req.body, &decoded))
	assert.Equal(t, map[string]string{"query": `list ec2 instances "prod" & <dev>`}, decoded)
}

func TestInvoke_ErrorBodyWithReplyIsAPayload(t *testing.T) {
	f := &fakeLambda{status: http.StatusInternalServerError, body: `{"reply":"partial failure","failed":["i-9"]}`}
	inv := newSignedInvoker(t, f)

	payload, err := inv.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "partial failure", payload.Reply)
	assert.Equal(t, http.StatusInternalServerError, payload.StatusCode)
}

func TestInvoke_RemoteError(t *testing.T) {
	f := &fakeLambda{status: http.StatusForbidden, body: `{"Message":"Forbidden"}`}
	inv := newSignedInvoker(t, f)

	payload, err := inv.Invoke(context.Background(), "q")

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
	assert.Equal(t, "Forbidden", remoteErr.Message)
	assert.Equal(t, "remote function returned status 403: Forbidden", err.Error())
	assert.Equal(t, http.StatusForbidden, payload.StatusCode)
}

func TestInvoke_EmptyReplyIsNotAnError(t *testing.T) {
	f := &fakeLambda{status: http.StatusOK, body: `{"summary":{"total":"$12"}}`}
	inv := newSignedInvoker(t, f)

	payload, err := inv.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, payload.HasReply())
}

func TestInvoke_UndecodableBody(t *testing.T) {
	f := &fakeLambda{status: http.StatusBadGateway, body: `<html>Bad Gateway</html>`}
	inv := newSignedInvoker(t, f)

	_, err := inv.Invoke(context.Background(), "q")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "decode response", transportErr.Op)
	assert.Contains(t, err.Error(), "status 502")
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	inv := New(&http.Client{}, "http://"+addr+"/")

	_, err = inv.Invoke(context.Background(), "q")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "send request", transportErr.Op)
}

func TestInvoke_RecordsMetrics(t *testing.T) {
	f := &fakeLambda{status: http.StatusOK, body: `{}`}
	recorder := metrics.NewRecorder()
	inv := newSignedInvoker(t, f, WithMetrics(recorder))

	_, err := inv.Invoke(context.Background(), "q")
	require.NoError(t, err)

	families, err := recorder.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if family.GetName() != "cloudops_invocations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			if m.GetLabel()[0].GetValue() == metrics.OutcomeEmptyReply {
				found = true
				assert.Equal(t, float64(1), m.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found)
}

func TestNewFromConfig_MissingCredentials(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.Config{
		Region:      config.DefaultRegion,
		EndpointURL: config.DefaultEndpointURL,
		MaxSessions: 1,
	})

	var configErr *config.ConfigError
	assert.True(t, errors.As(err, &configErr))
}
