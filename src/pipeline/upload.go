package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Client submits one captured image to the recognition endpoint as a
	// multipart request and validates the response shape.
	Client struct {
		uploadURL string
		transport *http.Transport
		log       *logrus.Entry
	}

	// SubmitOptions bound a single submission. A zero Timeout uses
	// DefaultTimeout.
	SubmitOptions struct {
		Timeout time.Duration
	}

	recognitionResponse struct {
		Json json.RawMessage `json:"json"`
	}

	errorResponse struct {
		Detail string `json:"detail"`
	}
)

// DefaultTimeout is the wall-clock budget for one submission. Large photos
// over a slow mobile link can take minutes to move.
const DefaultTimeout = 3 * time.Minute

const fileField = "file"

// NewClient creates a Client posting to uploadURL.
func NewClient(uploadURL string, idleTimeout time.Duration) *Client {
	return &Client{
		uploadURL: uploadURL,
		transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    idleTimeout,
			DisableCompression: true,
		},
		log: logrus.WithField("component", "upload-client"),
	}
}

// Submit performs one cancelable multipart submission of the asset's bytes.
// When the timeout elapses the underlying transport request is actively
// canceled, so ClientTimeout fires deterministically and no stale success can
// arrive afterwards. The returned slice may be empty: an empty recognition
// array is a valid response, not a failure.
func (c *Client) Submit(ctx context.Context, asset Asset, opts SubmitOptions) ([]FoodItem, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, contentType, err := c.multipartBody(asset)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("can not prepare request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.log.WithFields(logrus.Fields{"url": c.uploadURL, "file": asset.Name()}).Debug("sending request")

	client := &http.Client{Transport: c.transport}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &UploadError{Kind: ClientTimeout, Err: err}
		}
		if errors.Is(err, context.Canceled) {
			return nil, &UploadError{Kind: ClientTimeout, Err: err}
		}
		return nil, &UploadError{Kind: NetworkUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &UploadError{Kind: ClientTimeout, Err: err}
		}
		return nil, &UploadError{Kind: NetworkUnavailable, Err: err}
	}

	c.log.Debugf("response status %d", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, &UploadError{Kind: PayloadTooLarge, Status: resp.StatusCode, Detail: serverDetail(raw)}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &UploadError{Kind: ServerTimeout, Status: resp.StatusCode, Detail: serverDetail(raw)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &UploadError{Kind: ServerRejected, Status: resp.StatusCode, Detail: serverDetail(raw)}
	}

	return parseRecognition(raw, resp.StatusCode)
}

// multipartBody builds the request body carrying the asset's bytes, declared
// name and MIME type under the single file field the endpoint expects.
func (c *Client) multipartBody(asset Asset) (*bytes.Buffer, string, error) {
	file, err := os.Open(asset.URI)
	if err != nil {
		return nil, "", fmt.Errorf("can not open image %s: %w", asset.URI, err)
	}
	defer file.Close()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := createImagePart(writer, fileField, asset.Name(), asset.ContentType())
	if err != nil {
		return nil, "", fmt.Errorf("can not marshall body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("can not read image %s: %w", asset.URI, err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("can not marshall body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func createImagePart(writer *multipart.Writer, field, name, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, name))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

// parseRecognition validates that the body holds the recognition array under
// the known field; anything else is an InvalidResponseShape failure.
func parseRecognition(raw []byte, status int) ([]FoodItem, error) {
	var response recognitionResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &UploadError{Kind: InvalidResponseShape, Status: status, Err: err}
	}
	if len(response.Json) == 0 {
		return nil, &UploadError{Kind: InvalidResponseShape, Status: status}
	}
	var items []FoodItem
	if err := json.Unmarshal(response.Json, &items); err != nil {
		return nil, &UploadError{Kind: InvalidResponseShape, Status: status, Err: err}
	}
	if items == nil {
		return nil, &UploadError{Kind: InvalidResponseShape, Status: status}
	}
	return items, nil
}

func serverDetail(raw []byte) string {
	var response errorResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return ""
	}
	return response.Detail
}
