// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/model"
)

// FilesClient exposes file upload (spec.md §4.B "upload_file").
type FilesClient struct{ c *Client }

// Upload sends bytes as filename to channel in a single multipart request,
// including the optional comment field when present. spec.md §9 resolves
// the source's "does it send the form twice when a comment is present"
// question in favor of always a single send — there is no code path here
// that issues the request more than once.
func (fc *FilesClient) Upload(ctx context.Context, cred, channel string, data []byte, filename string, comment string) (*model.File, error) {
	if filename == "" {
		return nil, apperr.Validation("filename must be non-empty")
	}

	resp, err := fc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		req := fc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetFileReader("file", filename, bytes.NewReader(data)).
			SetFormData(map[string]string{"channels": channel})
		if comment != "" {
			req.SetFormData(map[string]string{"initial_comment": comment})
		}
		return req.Post("/files.upload")
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		envelope
		File model.File `json:"file"`
	}
	if uerr := json.Unmarshal(resp.Body(), &body); uerr != nil {
		return nil, apperr.ServerError("malformed files.upload response")
	}
	return &body.File, nil
}
