// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RegistryProvider queries an authoritative registry service (e.g. voter
// rolls) over HTTP. The service accepts the request wire shape and returns
// found/matchScore/validationResults.
type RegistryProvider struct {
	endpoint string
	client   *http.Client
}

// NewRegistryProvider creates a provider against the given endpoint. Every
// call carries a timeout; a hung registry degrades rows, never hangs a
// document.
func NewRegistryProvider(endpoint string, timeout time.Duration) *RegistryProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RegistryProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *RegistryProvider) Name() string { return "registry" }

// Lookup posts the request to the registry and decodes the shared response
// shape.
func (p *RegistryProvider) Lookup(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode registry request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registry lookup returned %d: %s", resp.StatusCode, string(payload))
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	return &decoded, nil
}
