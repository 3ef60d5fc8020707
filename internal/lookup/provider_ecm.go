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

	"docrecon/internal/security"
)

// ecmClient is the shared transport for ECM search providers. Both DocMgt
// and FileBound expose a keyed document-search API that returns index
// fields; the providers differ only in endpoint shape and payload.
type ecmClient struct {
	baseURL string
	apiKey  *security.SecureString
	client  *http.Client
}

func newECMClient(baseURL, apiKey string, timeout time.Duration) ecmClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return ecmClient{
		baseURL: baseURL,
		apiKey:  security.NewSecureString(apiKey),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c ecmClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := c.apiKey.String(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search returned %d: %s", resp.StatusCode, string(snippet))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// DocMgtProvider searches a DocMgt record type by index field.
type DocMgtProvider struct {
	ecm        ecmClient
	recordType string
}

// NewDocMgtProvider creates a provider against a DocMgt instance.
func NewDocMgtProvider(baseURL, apiKey, recordType string, timeout time.Duration) *DocMgtProvider {
	return &DocMgtProvider{
		ecm:        newECMClient(baseURL, apiKey, timeout),
		recordType: recordType,
	}
}

func (p *DocMgtProvider) Name() string { return "docmgt" }

type docMgtSearchResponse struct {
	Records []struct {
		Fields map[string]string `json:"fields"`
	} `json:"records"`
}

// Lookup searches for records whose index field equals the key value. The
// first record's index fields become the source row.
func (p *DocMgtProvider) Lookup(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"recordType": p.recordType,
		"field":      req.KeyColumn,
		"value":      req.KeyValue,
		"maxResults": 1,
	}

	var decoded docMgtSearchResponse
	if err := p.ecm.postJSON(ctx, "/api/records/search", payload, &decoded); err != nil {
		return nil, err
	}

	if len(decoded.Records) == 0 {
		return &Response{Found: false}, nil
	}
	return &Response{Found: true, Row: decoded.Records[0].Fields}, nil
}

// FileBoundProvider searches a FileBound project by index field.
type FileBoundProvider struct {
	ecm       ecmClient
	projectID string
}

// NewFileBoundProvider creates a provider against a FileBound instance.
func NewFileBoundProvider(baseURL, apiKey, projectID string, timeout time.Duration) *FileBoundProvider {
	return &FileBoundProvider{
		ecm:       newECMClient(baseURL, apiKey, timeout),
		projectID: projectID,
	}
}

func (p *FileBoundProvider) Name() string { return "filebound" }

type fileBoundSearchResponse struct {
	Files []struct {
		IndexFields map[string]string `json:"indexFields"`
	} `json:"files"`
}

// Lookup searches project files by index field value.
func (p *FileBoundProvider) Lookup(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"projectId": p.projectID,
		"filter": map[string]string{
			"field": req.KeyColumn,
			"value": req.KeyValue,
		},
		"limit": 1,
	}

	var decoded fileBoundSearchResponse
	if err := p.ecm.postJSON(ctx, "/api/files/search", payload, &decoded); err != nil {
		return nil, err
	}

	if len(decoded.Files) == 0 {
		return &Response{Found: false}, nil
	}
	return &Response{Found: true, Row: decoded.Files[0].IndexFields}, nil
}
