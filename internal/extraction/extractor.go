// Package extraction turns receipt images into raw scanned records by calling
// the vision model. The response is an opaque JSON payload whose every field
// may be absent or null; decoding is tolerant by construction.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/normalize"
)

// ReceiptItem is one extracted line item.
type ReceiptItem struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

// TaxDetails is the extracted tax breakdown.
type TaxDetails struct {
	Rate   *float64 `json:"rate"`
	Amount *float64 `json:"amount"`
}

// Receipt is the structured result of one extraction call. Pointer fields
// are nil when the model could not read the value; the category is advisory
// only and may be overridden downstream.
type Receipt struct {
	MerchantName string        `json:"merchant_name"`
	TotalAmount  *float64      `json:"total_amount"`
	Items        []ReceiptItem `json:"items"`
	Tax          *TaxDetails   `json:"tax_details"`
	Category     string        `json:"category"`
	Confidence   *float64      `json:"confidence"`
	RawText      string        `json:"raw_text"`
}

// Extractor downloads receipt images from GCS and extracts structured data
// with the vision model.
type Extractor struct {
	model string
	log   zerolog.Logger
}

// NewExtractor creates an Extractor using the given model.
func NewExtractor(model string, log zerolog.Logger) *Extractor {
	return &Extractor{model: model, log: log}
}

// ExtractFromGCS downloads the image at gcsURI ("gs://bucket/object") and
// runs extraction on it.
func (e *Extractor) ExtractFromGCS(ctx context.Context, gcsURI, mimeType string) (*Receipt, error) {
	imageBytes, err := fetchFromGCS(ctx, gcsURI)
	if err != nil {
		return nil, fmt.Errorf("ExtractFromGCS: %w", err)
	}
	return e.Extract(ctx, imageBytes, mimeType)
}

// Extract sends the image to the model and decodes the structured response.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte, mimeType string) (*Receipt, error) {
	prompt :=
		"You are a receipt parser.\n\n" +
			"Task:\n" +
			"- Read the attached receipt image.\n" +
			"- Output STRICT JSON only (no comments, no extra text).\n\n" +
			"Output object shape (use null for anything you cannot read):\n" +
			"- \"merchant_name\": string or null\n" +
			"- \"total_amount\": number or null\n" +
			"- \"items\": array of {\"name\": string, \"price\": number or null, \"quantity\": integer or null}\n" +
			"- \"tax_details\": {\"rate\": number or null, \"amount\": number or null} or null\n" +
			"- \"category\": string or null (best guess, e.g. \"Food\", \"Transport\")\n" +
			"- \"confidence\": number between 0 and 1\n" +
			"- \"raw_text\": string, the visible receipt text\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Extract: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     imageBytes,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Extract: empty response from model")
	}

	return DecodeReceipt(rawText)
}

// DecodeReceipt decodes a raw model response into a Receipt. Absent and null
// fields are fine; a payload that is not a JSON object is not.
func DecodeReceipt(raw string) (*Receipt, error) {
	clean := cleanModelJSON(raw)

	var receipt Receipt
	if err := json.Unmarshal([]byte(clean), &receipt); err != nil {
		return nil, fmt.Errorf("DecodeReceipt: unmarshal JSON: %w", err)
	}
	return &receipt, nil
}

// ToRawRecord maps an extraction result into the scanned-record shape the
// normalizer consumes. recordID and createdAt come from the stored receipt
// document, not from the extraction.
func ToRawRecord(receipt *Receipt, recordID string, createdAt time.Time) normalize.RawRecord {
	fields := map[string]interface{}{
		"merchant_name": receipt.MerchantName,
		"category":      receipt.Category,
		"raw_text":      receipt.RawText,
		"created_at":    createdAt,
	}
	if receipt.TotalAmount != nil {
		fields["total_amount"] = *receipt.TotalAmount
	}
	return normalize.RawRecord{
		ID:     recordID,
		Origin: domain.OriginScanned,
		Fields: fields,
	}
}

// fetchFromGCS downloads the object bytes behind a gs:// URI.
func fetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func splitGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI %q", uri)
	}
	return parts[0], parts[1], nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
