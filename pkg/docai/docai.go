// Package docai sends scanned answer-sheet pages to Google Document AI
// and converts the response into the generic block graph consumed by the
// extraction engine.
//
// The package covers the complete path from raw PDF bytes to a list of
// blockgraph.Block values: tables become TABLE and CELL blocks with
// 1-based row and column indices, recognized tokens become WORD blocks
// attached to the cell whose text span contains them, form fields become
// paired KEY_VALUE blocks, and checkbox visual elements become SELECTION
// blocks.
//
// Raw API responses can be cached on disk as protojson, keyed by the
// content hash of the page, so re-running a batch never re-invokes the
// service for pages it has already seen. Caching and offline operation
// are controlled through the explicit Config value; there are no
// process-wide toggles.
//
// Main Functions:
//
// - ProcessSheet: PDF bytes to block graph, with optional caching
// - BlocksFromProto: the proto-to-block-graph conversion
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for form parsing
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
package docai

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/quizscan/quizscan/pkg/blockgraph"
)

// Config carries the Document AI processor settings for one call.
// It is immutable by convention; callers construct one and pass it down.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string

	// CacheDir, when set, holds protojson dumps of raw API responses
	// keyed by page content hash. Cached pages are never re-sent.
	CacheDir string

	// Offline forbids API calls entirely; every page must be served from
	// CacheDir. Useful for reprocessing batches with new answer keys.
	Offline bool
}

// endpoint returns the regional service endpoint for the processor.
func (c *Config) endpoint() string {
	return fmt.Sprintf("%s-documentai.googleapis.com:443", c.Location)
}

// processorName returns the full resource name of the processor.
func (c *Config) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// ProcessSheet processes one page PDF and returns its block graph.
// With a cache directory configured, the raw response is served from and
// written to disk so the service is invoked at most once per page.
func ProcessSheet(ctx context.Context, pdfBytes []byte, cfg *Config) ([]blockgraph.Block, error) {
	cachePath := ""
	if cfg.CacheDir != "" {
		cachePath = filepath.Join(cfg.CacheDir, fmt.Sprintf("%x.json", sha256.Sum256(pdfBytes)))
		if data, err := os.ReadFile(cachePath); err == nil {
			var doc documentaipb.Document
			if err := protojson.Unmarshal(data, &doc); err == nil {
				return BlocksFromProto(&doc), nil
			}
			// An unreadable cache entry is ignored and rewritten below.
		}
	}

	if cfg.Offline {
		return nil, fmt.Errorf("page not in cache %s and offline mode is set", cfg.CacheDir)
	}

	rawDoc, err := processDocument(ctx, pdfBytes, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to process sheet: %w", err)
	}

	if cachePath != "" {
		if err := writeCache(cachePath, rawDoc); err != nil {
			return nil, err
		}
	}

	return BlocksFromProto(rawDoc), nil
}

// writeCache stores the raw API response as protojson.
func writeCache(path string, doc *documentaipb.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := protojson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal raw document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
