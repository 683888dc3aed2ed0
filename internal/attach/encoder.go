// Package attach turns compose-time attachment references into durable
// blob-store objects.
package attach

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ordertalk/internal/blob"
	"ordertalk/internal/store"
)

// Encoder classifies an attachment URI, materializes its bytes and
// uploads them. Keys are namespaced "<prefix>/<scope>/<ts>-<id><ext>";
// the KYC and commodity upload flows reuse the same encoder with their
// own prefix.
type Encoder struct {
	blobs  blob.Store
	prefix string
	client *http.Client
	logger *zap.Logger
}

// NewEncoder creates an encoder uploading under the given key prefix.
func NewEncoder(blobs blob.Store, prefix string, logger *zap.Logger) *Encoder {
	if prefix == "" {
		prefix = "chat"
	}
	return &Encoder{
		blobs:  blobs,
		prefix: strings.Trim(prefix, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Resolve makes a single attachment durable. data: URIs are decoded,
// http(s) URIs are fetched and re-uploaded, anything else is treated as
// already durable and passed through unchanged.
func (e *Encoder) Resolve(ctx context.Context, scope string, att store.Attachment) (store.Attachment, error) {
	var (
		data        []byte
		contentType string
		err         error
	)

	switch {
	case strings.HasPrefix(att.URI, "data:"):
		data, contentType, err = decodeDataURI(att.URI)
	case strings.HasPrefix(att.URI, "http://"), strings.HasPrefix(att.URI, "https://"):
		data, contentType, err = e.fetch(ctx, att.URI)
	default:
		return att, nil
	}
	if err != nil {
		return store.Attachment{}, err
	}

	key := fmt.Sprintf("%s/%s/%d-%s%s", e.prefix, scope, time.Now().UnixMilli(), uuid.New().String(), extension(contentType))
	if err := e.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return store.Attachment{}, fmt.Errorf("upload %s: %w", key, err)
	}

	att.URI = e.blobs.PublicURL(key)
	return att, nil
}

// ResolveAll resolves a batch best-effort: a failed upload drops that
// attachment rather than failing the batch, and the dropped list is
// returned so the caller can surface the partial failure.
func (e *Encoder) ResolveAll(ctx context.Context, scope string, atts []store.Attachment) (resolved, dropped []store.Attachment) {
	for _, att := range atts {
		out, err := e.Resolve(ctx, scope, att)
		if err != nil {
			e.logger.Warn("attachment upload failed, dropping",
				zap.String("attachment_id", att.ID),
				zap.String("scope", scope),
				zap.Error(err))
			dropped = append(dropped, att)
			continue
		}
		resolved = append(resolved, out)
	}
	return resolved, dropped
}

func (e *Encoder) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// decodeDataURI splits "data:<type>;base64,<payload>" into bytes and
// content type. A missing media type defaults to octet-stream.
func decodeDataURI(uri string) ([]byte, string, error) {
	comma := strings.Index(uri, ",")
	if comma < 0 {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return data, contentType, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
