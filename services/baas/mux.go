package baas

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/video"
)

var _ video.Backend = (*Client)(nil)

func (c *Client) CreateUpload(ctx context.Context, token, corsOrigin string) (video.UploadTarget, error) {
	var target video.UploadTarget
	err := c.post(ctx, "/mux/upload-url", token, struct {
		CORSOrigin string `json:"cors_origin"`
	}{corsOrigin}, &target)
	return target, err
}

func (c *Client) UploadStatus(ctx context.Context, token, uploadID string) (video.UploadStatus, error) {
	var st video.UploadStatus
	err := c.get(ctx, "/mux/upload-status/"+segment(uploadID), token, &st)
	return st, err
}

func (c *Client) Asset(ctx context.Context, token, assetID string) (video.Asset, error) {
	var asset video.Asset
	err := c.get(ctx, "/mux/get_asset?asset_id="+url.QueryEscape(assetID), token, &asset)
	return asset, err
}

func (c *Client) SignPlayback(ctx context.Context, token, playbackID string) (video.PlaybackTokens, error) {
	var tokens video.PlaybackTokens
	err := c.post(ctx, "/mux/sign_playback", token, struct {
		PlaybackID string `json:"playback_id"`
	}{playbackID}, &tokens)
	return tokens, err
}

// PutUpload streams a file to a signed upload URL. The URL carries its own credentials.
// A negative size sends the body chunked.
func (c *Client) PutUpload(ctx context.Context, uploadURL, contentType string, size int64, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return errors.Wrap(err, "creating upload request")
	}
	req.Header.Set("Content-Type", contentType)
	if size >= 0 {
		req.ContentLength = size
	}

	// no client timeout: large files take a while, ctx bounds the upload
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
