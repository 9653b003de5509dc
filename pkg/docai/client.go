package docai

import (
	"context"
	"fmt"
	"os"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// processDocument sends one page PDF to the configured Document AI
// processor and returns the raw Document proto. Credentials come from
// the GOOGLE_APPLICATION_CREDENTIALS environment variable; human review
// is always skipped since the correction engine handles OCR noise.
func processDocument(ctx context.Context, pdfBytes []byte, cfg *Config) (*documentaipb.Document, error) {
	client, err := documentai.NewDocumentProcessorClient(
		ctx,
		option.WithEndpoint(cfg.endpoint()),
		option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	defer client.Close()

	resp, err := client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: cfg.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}

	return resp.Document, nil
}
