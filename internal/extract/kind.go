package extract

import "strings"

// Kind classifies an uploaded study-material file.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindPPTX    Kind = "pptx"
	KindUnknown Kind = "unknown"
)

const (
	MimePDF  = "application/pdf"
	MimePPT  = "application/vnd.ms-powerpoint"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// DetectKind classifies a file from its name and optional declared MIME type.
// The extension wins; the MIME type is only consulted when the extension is
// inconclusive. Always returns a value; callers must reject KindUnknown before
// attempting extraction.
func DetectKind(filename, mime string) Kind {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".pdf") || mime == MimePDF {
		return KindPDF
	}
	if strings.HasSuffix(lower, ".pptx") || mime == MimePPTX {
		return KindPPTX
	}
	return KindUnknown
}
