package sourceclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// signingService and signingRegion are fixed: the source cluster's
// SigV4 implementation does not participate in AWS's multi-region
// routing, it only reuses the algorithm.
const (
	signingService = "s3"
	signingRegion  = "us-east-1"
)

// sign attaches a SigV4 signature to req using creds. req.Body, if any,
// must already be set to a rewindable io.ReadSeeker-backed body (the
// request builders in operations.go guarantee this).
func sign(ctx context.Context, req *http.Request, creds Credentials) error {
	payloadHash, err := hashPayload(req)
	if err != nil {
		return err
	}

	signer := v4.NewSigner()
	awsCreds := aws.Credentials{
		AccessKeyID:     creds.AccessKey,
		SecretAccessKey: creds.SecretKey,
	}
	return signer.SignHTTP(ctx, awsCreds, req, payloadHash, signingService, signingRegion, time.Now())
}

func hashPayload(req *http.Request) (string, error) {
	h := sha256.New()
	if req.Body != nil {
		body, err := req.GetBody()
		if err != nil {
			return "", err
		}
		defer body.Close()
		if _, err := io.Copy(h, body); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
