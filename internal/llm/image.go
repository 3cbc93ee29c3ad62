package llm

import (
	"context"
	"errors"
	"strings"
)

var ErrNoImage = errors.New("no image generated")

// GenerateImage transforms SourceImage according to Prompt and returns a data
// URL. The caller owns the deadline.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	parts := make([]part, 0, 2)
	if data := inlineImage(req.SourceImage); data != nil {
		parts = append(parts, part{InlineData: data})
	}
	parts = append(parts, part{Text: strings.TrimSpace(req.Prompt)})

	resp, err := c.generate(ctx, c.imageModel, generateRequest{
		Contents: []content{{Role: RoleUser, Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModality: []string{"TEXT", "IMAGE"},
		},
	})
	if err != nil {
		return "", err
	}
	return extractCandidateImage(resp)
}

func extractCandidateImage(resp generateResponse) (string, error) {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || strings.TrimSpace(p.InlineData.Data) == "" {
				continue
			}
			mimeType := strings.TrimSpace(p.InlineData.MIMEType)
			if mimeType == "" {
				mimeType = "image/png"
			}
			return "data:" + mimeType + ";base64," + strings.TrimSpace(p.InlineData.Data), nil
		}
	}
	return "", ErrNoImage
}

func inlineImage(source string) *inlineData {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil
	}
	mimeType := "image/jpeg"
	if strings.HasPrefix(strings.ToLower(trimmed), "data:") {
		mimeType = dataURLMIMEType(trimmed, mimeType)
		payload := extractDataURLBase64Payload(trimmed)
		if payload == "" {
			return nil
		}
		trimmed = payload
	}
	return &inlineData{MIMEType: mimeType, Data: trimmed}
}

func dataURLMIMEType(dataURL string, fallback string) string {
	header, _, ok := strings.Cut(dataURL, ",")
	if !ok {
		return fallback
	}
	header = strings.TrimPrefix(header, "data:")
	mimeType, _, _ := strings.Cut(header, ";")
	if strings.TrimSpace(mimeType) == "" {
		return fallback
	}
	return strings.TrimSpace(mimeType)
}

func extractDataURLBase64Payload(dataURL string) string {
	trimmed := strings.TrimSpace(dataURL)
	comma := strings.Index(trimmed, ",")
	if comma <= 0 || comma >= len(trimmed)-1 {
		return ""
	}
	header := strings.ToLower(trimmed[:comma])
	if !strings.HasPrefix(header, "data:image/") || !strings.Contains(header, ";base64") {
		return ""
	}
	return strings.TrimSpace(trimmed[comma+1:])
}
