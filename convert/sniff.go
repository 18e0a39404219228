package convert

import "net/http"

// DetectContentType guesses a media type from the first bytes of a
// resource body when the resource itself reports none. Delegates to
// net/http.DetectContentType, the standard WHATWG MIME sniffing
// algorithm.
func DetectContentType(data []byte) string {
	return http.DetectContentType(data)
}
