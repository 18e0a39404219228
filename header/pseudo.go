package header

// Pseudo holds the fixed HTTP/2 pseudo-header slot, kept separate from
// the regular Store so pseudo-headers never mix with serialized headers.
type Pseudo struct {
	Method    string // :method
	Scheme    string // :scheme
	Authority string // :authority
	Path      string // :path
	Status    string // :status (response only)
}

// RequestPseudoKeys lists the pseudo-header names accepted on a request,
// in the wire order most HTTP/2 peers emit (not required by RFC 7540).
var RequestPseudoKeys = []string{":method", ":scheme", ":authority", ":path"}

// IsPseudo reports whether name is an HTTP/2 pseudo-header.
func IsPseudo(name string) bool {
	return len(name) > 0 && name[0] == ':'
}
