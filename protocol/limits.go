package protocol

// Limits holds the configurable hard caps spec §4.2 requires the parser
// to enforce. Exceeding any of these fails the parse with Malformed (or
// TooLarge for body size); they are distinct from the softer validator
// checks in package validate.
type Limits struct {
	MaxLineLength       int // request line length, bytes
	MaxHeaderCount      int
	MaxHeaderNameLength int
	MaxHeaderValueLength int
	MaxHeaderBytes      int // total header bytes, all headers combined
	MaxURILength        int
	MaxBodySize         int64

	// AllowedMethods is the request-line method whitelist (spec §4.2
	// default: GET, HEAD, POST).
	AllowedMethods []string
}

// DefaultLimits returns the spec §4.2 default method whitelist paired
// with generous size limits; callers should derive Limits from
// config.VigilConfig instead for production use.
func DefaultLimits() Limits {
	return Limits{
		MaxLineLength:        8 * 1024,
		MaxHeaderCount:       100,
		MaxHeaderNameLength:  256,
		MaxHeaderValueLength: 8 * 1024,
		MaxHeaderBytes:       8 * 1024,
		MaxURILength:         4096,
		MaxBodySize:          1 << 20,
		AllowedMethods:       []string{"GET", "HEAD", "POST"},
	}
}

// allowsMethod reports whether method is in the configured whitelist.
func (l Limits) allowsMethod(method string) bool {
	for _, m := range l.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}
