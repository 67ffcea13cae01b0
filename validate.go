package pdfconverter

// MaxUploadBytes bounds uploads on every endpoint. Documents are buffered
// only for base64 encoding and discarded after the request.
const MaxUploadBytes = 5 << 20 // 5 MiB

// MIMEPDF is the only type accepted on the cloud-publish path.
const MIMEPDF = "application/pdf"

// allowedTypes is the extraction allow-list: PDF plus common image formats.
var allowedTypes = map[string]bool{
	MIMEPDF:      true,
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ValidateUpload checks a candidate document against the extraction
// allow-list and size bound. Pure: no I/O, no side effects. The checks run
// in the same order the endpoints report them: type, emptiness, size.
func ValidateUpload(mimeType string, size int64) error {
	if !allowedTypes[mimeType] {
		return ErrBadFileType
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if size > MaxUploadBytes {
		return ErrFileTooLarge
	}
	return nil
}

// ValidatePDFUpload is the stricter cloud-publish variant: PDF only.
func ValidatePDFUpload(mimeType string, size int64) error {
	if mimeType != MIMEPDF {
		return ErrNotPDF
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if size > MaxUploadBytes {
		return ErrFileTooLarge
	}
	return nil
}
