package mediagraph

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies pipeline errors for telemetry.
type ErrorCategory int

const (
	// ErrCategoryDevice indicates capture device failures (missing node,
	// busy device, ioctl errors).
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryNegotiation indicates caps/format/link failures.
	ErrCategoryNegotiation
	// ErrCategoryUnknown indicates unclassified errors.
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the category.
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryNegotiation:
		return "negotiation"
	default:
		return "unknown"
	}
}

// ClassifyPipelineError categorizes a GStreamer error for telemetry.
// go-gst's GError does not expose the error domain, so classification
// relies on message heuristics.
func ClassifyPipelineError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyErrorText(gerr.Error(), gerr.DebugString())
}

func classifyErrorText(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	deviceKeywords := []string{
		"device",
		"v4l2",
		"/dev/video",
		"busy",
		"no such file",
		"ioctl",
		"permission denied",
	}
	for _, kw := range deviceKeywords {
		if strings.Contains(combined, kw) {
			return ErrCategoryDevice
		}
	}

	negotiationKeywords := []string{
		"caps",
		"negotiat",
		"format",
		"link",
		"decode",
		"not-linked",
		"missing plugin",
	}
	for _, kw := range negotiationKeywords {
		if strings.Contains(combined, kw) {
			return ErrCategoryNegotiation
		}
	}

	return ErrCategoryUnknown
}
