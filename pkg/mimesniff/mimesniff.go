// Package mimesniff guesses a MIME type from the head bytes of an image
// stream, falling back to the source's file name only for the handful of
// types the spec calls out as routinely ambiguous.
//
// Grounded on spec.md section 4.5 (MIME Dispatch); there is no gio-style
// g_content_type_guess in the pack, so sniffing is implemented directly off
// well-known magic numbers the way net/http's DetectContentType does, with
// the addition of a confidence flag so the "unsure" fallback path can be
// expressed.
package mimesniff

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/imgjail/imgjail/pkg/ihosterrors"
)

// ambiguousTypes lists sniffed results the spec says warrant a second look
// at the file name, because they are routinely confused with another format.
var ambiguousTypes = map[string]bool{
	"image/tiff":        true, // easily confused with camera RAW containers
	"application/xml":   true, // SVG is XML at the byte level
	"application/gzip":  true, // SVGZ is gzip at the byte level
}

type magic struct {
	mime   string
	prefix []byte
}

var magics = []magic{
	{"image/png", []byte("\x89PNG\r\n\x1a\n")},
	{"image/jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"image/gif", []byte("GIF87a")},
	{"image/gif", []byte("GIF89a")},
	{"image/webp", []byte("RIFF")}, // refined below (needs WEBP at offset 8)
	{"image/bmp", []byte("BM")},
	{"image/tiff", []byte{0x49, 0x49, 0x2A, 0x00}}, // little-endian TIFF
	{"image/tiff", []byte{0x4D, 0x4D, 0x00, 0x2A}}, // big-endian TIFF
	{"image/x-icon", []byte{0x00, 0x00, 0x01, 0x00}},
	{"image/avif", []byte("ftyp")}, // refined below (ISOBMFF brand check)
	{"image/heif", []byte("ftyp")},
	{"application/gzip", []byte{0x1F, 0x8B}},
	{"application/xml", []byte("<?xml")},
	{"application/xml", []byte("<svg")},
}

// Result is a MIME guess together with whether the sniffer considers it
// reliable on head bytes alone.
type Result struct {
	Mime   string
	Unsure bool
}

// Sniff guesses the MIME type of head (up to 64 KiB per spec.md's
// GFileWorker) and, when the sniff is unsure or lands on one of the
// routinely ambiguous types, consults fileName as a tiebreaker.
func Sniff(head []byte, fileName string) (string, error) {
	result := sniffHead(head)

	if !result.Unsure && !ambiguousTypes[result.Mime] {
		return result.Mime, nil
	}

	if byExt, ok := sniffExtension(fileName); ok {
		return byExt, nil
	}

	if result.Mime != "" {
		return result.Mime, nil
	}

	return "", ihosterrors.Configuration("unknown content type for %q", fileName)
}

func sniffHead(head []byte) Result {
	if isISOBMFF(head) {
		if brand := isobmffBrand(head); brand != "" {
			return Result{Mime: brand}
		}
	}

	if bytes.HasPrefix(head, []byte("RIFF")) {
		if len(head) >= 12 && bytes.Equal(head[8:12], []byte("WEBP")) {
			return Result{Mime: "image/webp"}
		}
		return Result{Mime: "application/octet-stream", Unsure: true}
	}

	for _, m := range magics {
		if m.mime == "image/avif" || m.mime == "image/heif" {
			continue // handled via isobmffBrand above
		}
		if bytes.HasPrefix(head, m.prefix) {
			return Result{Mime: m.mime}
		}
	}

	if len(head) == 0 {
		return Result{Mime: "", Unsure: true}
	}

	return Result{Mime: "application/octet-stream", Unsure: true}
}

func isISOBMFF(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp"))
}

// isobmffBrand inspects the major brand of an ISOBMFF container to
// distinguish AVIF from HEIF, both of which share the ftyp box prefix.
func isobmffBrand(head []byte) string {
	if len(head) < 12 {
		return ""
	}
	brand := string(head[8:12])
	switch brand {
	case "avif", "avis":
		return "image/avif"
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
		return "image/heif"
	default:
		return ""
	}
}

func sniffExtension(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".svg":
		return "image/svg+xml", true
	case ".svgz":
		return "image/svg+xml", true // gzip-compressed SVG, same logical type
	case ".cr2", ".nef", ".arw", ".dng", ".orf", ".raf":
		return "image/x-dcraw", true
	case ".tif", ".tiff":
		return "image/tiff", true
	case ".gz":
		return "application/gzip", true
	case ".xml":
		return "application/xml", true
	default:
		return "", false
	}
}
