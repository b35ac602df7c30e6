// Package attach analyzes binary note attachments: it dispatches on
// MIME type to optional text-extraction capabilities (OCR, PDF text
// layer, document text), runs fact extraction over whatever text comes
// back, and memoizes results to disk so repeated ingestion runs skip
// re-extraction.
//
// Every capability is optional at runtime. A missing capability, a
// failing extractor, or a corrupt file degrades to a labeled
// placeholder string; analysis never returns an error to the pipeline.
package attach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hurttlocker/chronicle/internal/extract"
)

// ErrCapabilityUnavailable is returned by capability implementations
// that are wired in but cannot run (missing binary, unreachable
// service). The analyzer treats it exactly like an absent capability.
var ErrCapabilityUnavailable = errors.New("capability unavailable")

// OCR extracts text from a raster image.
type OCR interface {
	ImageText(ctx context.Context, data []byte) (string, error)
}

// PDFText extracts the text layer of a PDF.
type PDFText interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// PDFRasterizer renders PDF pages to images, for OCR of scanned PDFs
// whose text layer is empty.
type PDFRasterizer interface {
	Pages(ctx context.Context, data []byte) ([][]byte, error)
}

// DocText extracts text from word-processor documents.
type DocText interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// Capabilities bundles the optional backends. Any field may be nil.
type Capabilities struct {
	OCR       OCR
	PDF       PDFText
	Rasterize PDFRasterizer
	Doc       DocText
}

// Analysis is the result of analyzing one attachment. The capability
// flags record what was available at processing time, so a later audit
// can tell "no text found" from "no OCR installed".
type Analysis struct {
	ExtractedText string               `json:"extracted_text"`
	MedicalInfo   extract.MedicalFacts `json:"medical_info"`
	ProcessedAt   time.Time            `json:"processed_at"`
	OCRAvailable  bool                 `json:"ocr_available"`
	PDFAvailable  bool                 `json:"pdf_processing_available"`
	DocAvailable  bool                 `json:"doc_processing_available"`
	FromCache     bool                 `json:"-"`
}

// Input identifies one attachment to analyze. Data may be nil, in which
// case the bytes are read from StoragePath.
type Input struct {
	FileName    string
	MimeType    string
	StoragePath string
	Data        []byte
}

// Analyzer runs attachment analysis with an optional disk cache.
type Analyzer struct {
	caps  Capabilities
	ex    *extract.Extractor
	cache *Cache
}

// NewAnalyzer builds an Analyzer. cache may be nil to disable
// memoization (useful in tests).
func NewAnalyzer(caps Capabilities, ex *extract.Extractor, cache *Cache) *Analyzer {
	return &Analyzer{caps: caps, ex: ex, cache: cache}
}

// Analyze extracts text and medical facts from one attachment.
//
// A cache entry for the attachment's storage path is returned
// unconditionally, with no re-validation against the file's current
// bytes: the key is a hash of the path, not the content, so reusing a
// path for different bytes serves the stale entry. That trade-off keeps
// cache keys stable across runs where archives are re-exported in place.
func (a *Analyzer) Analyze(ctx context.Context, in Input) Analysis {
	// A pathless attachment has no stable key; memoizing it would
	// collide every such attachment onto one entry.
	if a.cache != nil && in.StoragePath != "" {
		if cached, ok := a.cache.Lookup(in.StoragePath); ok {
			cached.FromCache = true
			return *cached
		}
	}

	analysis := Analysis{
		ProcessedAt:  time.Now().UTC(),
		OCRAvailable: a.caps.OCR != nil,
		PDFAvailable: a.caps.PDF != nil,
		DocAvailable: a.caps.Doc != nil,
	}

	data := in.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(in.StoragePath)
		if err != nil {
			analysis.ExtractedText = "File not found"
			a.finish(&analysis, in)
			return analysis
		}
	}

	analysis.ExtractedText = a.extractText(ctx, in, data)
	a.finish(&analysis, in)
	return analysis
}

// finish runs fact extraction over the recovered text and writes the
// cache entry.
func (a *Analyzer) finish(analysis *Analysis, in Input) {
	if a.ex != nil && analysis.ExtractedText != "" {
		analysis.MedicalInfo = a.ex.Extract(in.FileName, analysis.ExtractedText)
	}
	if a.cache != nil && in.StoragePath != "" {
		if err := a.cache.Store(in.StoragePath, analysis); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: caching attachment analysis for %s: %v\n", in.FileName, err)
		}
	}
}

// extractText dispatches on MIME type. Failures never propagate; they
// become labeled placeholder strings.
func (a *Analyzer) extractText(ctx context.Context, in Input, data []byte) string {
	switch {
	case strings.HasPrefix(in.MimeType, "image/"):
		return a.imageText(ctx, data)
	case in.MimeType == "application/pdf":
		return a.pdfText(ctx, data)
	case isWordDocument(in.MimeType):
		return a.docText(ctx, data)
	default:
		return fmt.Sprintf("[%s: %s] No text extraction available for this file type.", in.MimeType, sizeKB(data))
	}
}

func (a *Analyzer) imageText(ctx context.Context, data []byte) string {
	if a.caps.OCR == nil {
		return fmt.Sprintf("[Image: %s] OCR text extraction not available.", sizeKB(data))
	}
	text, err := a.caps.OCR.ImageText(ctx, data)
	if err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			return fmt.Sprintf("[Image: %s] OCR text extraction not available.", sizeKB(data))
		}
		return fmt.Sprintf("Error processing image: %v", err)
	}
	return text
}

func (a *Analyzer) pdfText(ctx context.Context, data []byte) string {
	if a.caps.PDF == nil {
		return fmt.Sprintf("[PDF: %s] Full text extraction not available.", sizeKB(data))
	}

	text, err := a.caps.PDF.Text(ctx, data)
	if err != nil && !errors.Is(err, ErrCapabilityUnavailable) {
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
	if strings.TrimSpace(text) != "" {
		return text
	}

	// Empty text layer: rasterize and OCR, but only when both
	// capabilities are present.
	if a.caps.Rasterize != nil && a.caps.OCR != nil {
		if ocrText := a.ocrPDFPages(ctx, data); strings.TrimSpace(ocrText) != "" {
			return ocrText
		}
	}
	return fmt.Sprintf("[PDF: %s] No extractable text found.", sizeKB(data))
}

func (a *Analyzer) ocrPDFPages(ctx context.Context, data []byte) string {
	pages, err := a.caps.Rasterize.Pages(ctx, data)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for i, page := range pages {
		text, err := a.caps.OCR.ImageText(ctx, page)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "Page %d:\n%s\n\n", i+1, text)
	}
	return b.String()
}

func (a *Analyzer) docText(ctx context.Context, data []byte) string {
	if a.caps.Doc == nil {
		return fmt.Sprintf("[DOCX: %s] Text extraction not available.", sizeKB(data))
	}
	text, err := a.caps.Doc.Text(ctx, data)
	if err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			return fmt.Sprintf("[DOCX: %s] Text extraction not available.", sizeKB(data))
		}
		return fmt.Sprintf("Error processing DOCX: %v", err)
	}
	return text
}

func isWordDocument(mime string) bool {
	return mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
		mime == "application/msword"
}

func sizeKB(data []byte) string {
	return fmt.Sprintf("%.1f KB", float64(len(data))/1024)
}
