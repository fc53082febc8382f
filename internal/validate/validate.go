package validate

import (
	"fmt"
	"html"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxImageSize caps uploads at 5 MiB.
const MaxImageSize = 5 << 20

// Turkish plate format: "34 ABC 123" or "34ABC1234". Whitespace between the
// groups is flexible; letters are matched case-insensitively by upper-casing
// the candidate first.
var plateRegex = regexp.MustCompile(`^[0-9]{2}\s*[A-Z]{1,3}\s*[0-9]{2,4}$`)

var allowedImageMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

var allowedImageExt = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
}

// FieldError reports a rejected input field. It maps to a 400 response with
// the message shown to the caller.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// SanitizeText trims surrounding whitespace and HTML-escapes the result so
// stored text renders inert in any later markup context.
func SanitizeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// Title sanitizes and validates a post title. Required, 5-100 characters
// after sanitization.
func Title(s string) (string, error) {
	t := SanitizeText(s)
	if n := len([]rune(t)); n < 5 || n > 100 {
		return "", &FieldError{Field: "title", Message: "title must be between 5 and 100 characters"}
	}
	return t, nil
}

// Description sanitizes and validates a post description. Required, 10-1000
// characters after sanitization.
func Description(s string) (string, error) {
	d := SanitizeText(s)
	if n := len([]rune(d)); n < 10 || n > 1000 {
		return "", &FieldError{Field: "description", Message: "description must be between 10 and 1000 characters"}
	}
	return d, nil
}

// Location sanitizes and validates an optional location. Empty input is
// accepted and returned empty; otherwise 3-100 characters after sanitization.
func Location(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	l := SanitizeText(s)
	if n := len([]rune(l)); n < 3 || n > 100 {
		return "", &FieldError{Field: "location", Message: "location must be between 3 and 100 characters"}
	}
	return l, nil
}

// PlateNumber validates an optional plate number against the regional
// format. Empty input is accepted and returned empty.
func PlateNumber(s string) (string, error) {
	p := strings.TrimSpace(s)
	if p == "" {
		return "", nil
	}
	if !plateRegex.MatchString(strings.ToUpper(p)) {
		return "", &FieldError{Field: "plate_number", Message: "plate number must look like 34 ABC 123"}
	}
	return p, nil
}

// Image checks an uploaded file's declared MIME type, extension and size
// before anything is written to disk.
func Image(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return &FieldError{Field: "image", Message: "image must be smaller than 5MB"}
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExt[ext] {
		return &FieldError{Field: "image", Message: "only JPEG, PNG and WebP images are allowed"}
	}
	if ct := fh.Header.Get("Content-Type"); !allowedImageMIME[ct] {
		return &FieldError{Field: "image", Message: "only JPEG, PNG and WebP images are allowed"}
	}
	return nil
}
