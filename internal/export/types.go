// Package export produces the registry report handed to auditors: the
// configured purposes and data categories, and every explicit
// per-context assignment.
package export

import (
	"errors"
	"time"
)

// Format is the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Report is the data rendered into the report template.
type Report struct {
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	Purposes    []ReportPurpose
	Categories  []ReportCategory
	Assignments []ReportAssignment
}

type ReportPurpose struct {
	Name            string
	Description     string
	RetentionPeriod string
	Protected       bool
}

type ReportCategory struct {
	Name        string
	Description string
}

type ReportAssignment struct {
	ContextName  string
	ContextLevel string
	Purpose      string
	Category     string
	UpdatedBy    string
	UpdatedAt    time.Time
}

// Result is the generated artifact.
type Result struct {
	Data      []byte
	Filename  string
	MimeType  string
	ObjectKey string // set when the artifact was uploaded to object storage
}

var (
	// ErrPDFDependencyMissing indicates the headless browser is unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates pandoc is unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	// ErrUnsupportedFormat indicates an unknown export format was requested.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
