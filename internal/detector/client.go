// Package detector talks to the external face detection server. The
// server takes raw image bytes and returns one embedding per detected
// face.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/openscrape/facedex/internal/fingerprint"
)

const defaultURL = "http://localhost:8000"

// Face is a single detected face with its embedding.
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// Result is the detection server's answer for one image. An image with
// no faces is a valid result with an empty face list.
type Result struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client posts images to the face detection server.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// DetectFaces detects faces in the image and returns their embeddings.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*Result, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// postMultipartImage constructs a multipart form with the image data
// and posts it to the given endpoint. The part carries an explicit
// Content-Type header based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", fingerprint.Sniff(imageData).MIMEType())
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
