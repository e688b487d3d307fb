// Package classify maps raw tag names, content types, and URL references to the
// categories shown in link reports.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// explicitScheme matches references that spell out a protocol, e.g. "https://".
// Protocol-relative references ("//cdn.example.com") do not match and are
// therefore reported as internal. Host comparison is intentionally not used.
var explicitScheme = regexp.MustCompile(`(?i)^\w{3,8}://`)

var tagNames = map[string]string{
	"link":   "Resource",
	"script": "Script",
	"img":    "Image",
	"a":      "Hyperlink",
	"audio":  "Audio",
	"embed":  "Embedded Media",
	"object": "Embedded Object",
	"video":  "Video",
	"form":   "Form",
	"iframe": "iFrame",
	"area":   "Area Shape",
	"base":   "Base URL",
}

var contentTypes = map[string]string{
	"application/atom+xml":          "Atom Feed",
	"application/javascript":        "JavaScript",
	"text/javascript":               "JavaScript",
	"application/pdf":               "PDF Doc",
	"application/rss+xml":           "RSS Feed",
	"application/font-woff":         "Web Font",
	"application/xml":               "XML Document",
	"image/gif":                     "GIF Image",
	"image/jpg":                     "JPEG Image",
	"image/jpeg":                    "JPEG Image",
	"image/png":                     "PNG Image",
	"image/svg+xml":                 "Vector Image",
	"image/bmp":                     "Bitmap Image",
	"text/css":                      "Style Sheet",
	"text/html":                     "HTML Page",
	"text/plain":                    "Plain Text",
	"text/rtf":                      "Rich Text",
	"video/mpeg":                    "MPEG1 Video",
	"video/mp4":                     "MP4 Video",
	"video/x-flv":                   "Flash Video",
	"application/x-shockwave-flash": "Flash Movie",
	"application/vnd.ms-excel":      "MS Excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "MS Excel",
	"application/vnd.ms-powerpoint":                                             "MS Powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "MS Powerpoint",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "MS Word",
	"application/vnd.ms-project":                                                "MS Project",
	"application/msword":                                                        "MS Word",
	"audio/mpeg":                                                                "MP3 Audio",
	"audio/mp4":                                                                 "MP4 Audio",
	"application/xhtml+xml":                                                     "XHTML Page",
	"application/zip":                                                           "ZIP Archive",
	"image/x-icon":                                                              "Icon Image",
	"video/quicktime":                                                           "QuickTime Video",
	"application/octet-stream":                                                  "Binary File",
	"video/h264":                                                                "H264 Video",
	"text/calendar":                                                             "Calendar Event",
	"application/x-silverlight-app":                                             "MS Silverlight",
	"video/x-ms-wmv":                                                            "Windows Media",
}

// LinkType returns a friendly label for the element that carried a link.
// Unknown tags fall back to the tag name with its first letter upper-cased.
func LinkType(tagName string) string {
	if tagName == "" {
		return ""
	}
	if label, ok := tagNames[strings.ToLower(tagName)]; ok {
		return label
	}
	return firstUpper(tagName)
}

// TypeName returns a friendly label for a MIME type. Parameters such as
// "; charset=utf-8" are ignored. Unknown types fall back to the capitalized
// top-level category ("font/woff2" becomes "Font").
func TypeName(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if mediaType == "" {
		return ""
	}
	if label, ok := contentTypes[mediaType]; ok {
		return label
	}
	if i := strings.IndexByte(mediaType, '/'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return firstUpper(mediaType)
}

// IsCheckableScheme reports whether links with the given scheme can be probed.
func IsCheckableScheme(scheme string) bool {
	return strings.EqualFold(scheme, "http") || strings.EqualFold(scheme, "https")
}

// HasExplicitScheme reports whether a raw attribute value starts with a
// "scheme://" prefix. Links without one are classified as internal.
func HasExplicitScheme(raw string) bool {
	return explicitScheme.MatchString(strings.TrimSpace(raw))
}

// StatusClass groups a status code into "1xx".."5xx". Links that never
// received a response are grouped as "error".
func StatusClass(statusCode string) string {
	if len(statusCode) != 3 || statusCode[0] < '1' || statusCode[0] > '5' {
		return "error"
	}
	return statusCode[:1] + "xx"
}

func firstUpper(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
