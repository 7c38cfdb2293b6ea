package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// HTTPSigner is the subset of the SigV4 signer used by SigningTransport
type HTTPSigner interface {
	SignHTTP(ctx context.Context, credentials aws.Credentials, r *http.Request, payloadHash string, service string, region string, signingTime time.Time, optFns ...func(*v4.SignerOptions)) error
}

// SigningTransport signs every outgoing request with AWS Signature Version 4 before handing it to the base transport
type SigningTransport struct {
	base        http.RoundTripper
	signer      HTTPSigner
	credentials aws.CredentialsProvider
	service     string
	region      string
	now         func() time.Time
}

// WithSigning wraps base so that requests are signed for service in region. A nil base uses http.DefaultTransport.
func WithSigning(base http.RoundTripper, credentials aws.CredentialsProvider, service, region string) *SigningTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &SigningTransport{
		base:        base,
		signer:      v4.NewSigner(),
		credentials: credentials,
		service:     service,
		region:      region,
		now:         time.Now,
	}
}

// WithClock overrides the signing time source
func (t *SigningTransport) WithClock(now func() time.Time) *SigningTransport {
	t.now = now
	return t
}

func (t *SigningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// The body is hashed into the signature, so it has to be read up front and restored for the base transport
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	// RoundTrippers must not modify the caller's request
	signed := req.Clone(req.Context())
	if bodyBytes != nil {
		signed.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		signed.ContentLength = int64(len(bodyBytes))
	}

	if err := t.Sign(signed, bodyBytes); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(signed)
}

// Sign adds the Authorization, X-Amz-Date and, for temporary credentials, X-Amz-Security-Token headers to req. For a
// fixed clock the result depends only on the credentials, region, method, URL, headers and body.
func (t *SigningTransport) Sign(req *http.Request, body []byte) error {
	ctx := req.Context()
	creds, err := t.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	err = t.signer.SignHTTP(ctx, creds, req, PayloadHash(body), t.service, t.region, t.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}

// PayloadHash is the hex encoded SHA-256 of body, as SigV4 expects it
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
