package export

import (
	"context"
	"fmt"
	"log"
)

// Service renders registry reports and, when object storage is
// configured, persists the artifact.
type Service struct {
	storage *ObjectStorage // nil when not configured
}

func NewService(storage *ObjectStorage) *Service {
	return &Service{storage: storage}
}

// Generate renders the report in the requested format. When object
// storage is available the artifact is uploaded and the object key set
// on the result; upload failures are logged but do not fail the export,
// since the caller still holds the bytes.
func (s *Service) Generate(ctx context.Context, report Report, format Format) (*Result, error) {
	html, err := renderHTML(report)
	if err != nil {
		return nil, err
	}

	var result *Result
	switch format {
	case FormatPDF:
		result, err = renderPDF(html, report.Title)
	case FormatDOCX:
		result, err = renderDOCX(html, report.Title)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		key, err := s.storage.Upload(ctx, result)
		if err != nil {
			log.Printf("export: artifact upload failed: %v", err)
		} else {
			result.ObjectKey = key
		}
	}
	return result, nil
}
