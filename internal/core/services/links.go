// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// BlobSigner signs a payload as a service account.
type BlobSigner func(ctx context.Context, serviceAccount string, payload []byte) ([]byte, error)

// SummaryLinks issues V4 signed GET URLs for published summaries. Signing goes
// through the IAM Credentials API, so no service account key is needed locally.
type SummaryLinks struct {
	SignerEmail string
	TTL         time.Duration
	Sign        BlobSigner
}

func NewSummaryLinks(iamClient *credentials.IamCredentialsClient, signerEmail string, ttl time.Duration) *SummaryLinks {
	return &SummaryLinks{
		SignerEmail: signerEmail,
		TTL:         ttl,
		Sign:        IAMBlobSigner(iamClient),
	}
}

// IAMBlobSigner signs with IamCredentialsClient.SignBlob.
func IAMBlobSigner(client *credentials.IamCredentialsClient) BlobSigner {
	return func(ctx context.Context, serviceAccount string, payload []byte) ([]byte, error) {
		req := &credentialspb.SignBlobRequest{
			Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", serviceAccount),
			Payload: payload,
		}
		resp, err := client.SignBlob(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
		}
		return resp.SignedBlob, nil
	}
}

// SignedURL returns a download link for bucket/object valid for TTL.
func (s *SummaryLinks) SignedURL(ctx context.Context, bucket string, object string) (string, error) {
	opts := &storage.SignedURLOptions{
		GoogleAccessID: s.SignerEmail,
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(s.TTL),
		SignBytes: func(b []byte) ([]byte, error) {
			return s.Sign(ctx, s.SignerEmail, b)
		},
	}
	u, err := storage.SignedURL(bucket, object, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucket, object, err)
	}
	return u, nil
}
