package errors

// Suggestions contains default fix suggestions for each error code.
var Suggestions = map[string]string{
	ErrCodeLineTooLong:        "The request line exceeded the configured limit. Check max_uri_length in the server config.",
	ErrCodeHeaderTooLong:      "A header line exceeded the configured limit. Check max_header_size in the server config.",
	ErrCodeTooManyHeaders:     "The request carried more headers than max_header_count allows.",
	ErrCodeURITooLong:         "The request URI exceeded max_uri_length.",
	ErrCodeBodyTooLarge:       "The request body exceeded max_request_size.",
	ErrCodeControlCharacter:   "The request contained a raw control character outside an allowed escape.",
	ErrCodeBadRequestLine:     "The request line could not be split into method, URI, and version.",
	ErrCodeUnsupportedMethod:  "The request method is not in the server's allowed method list.",
	ErrCodeUnsupportedVersion: "Only HTTP/1.0 and HTTP/1.1 are accepted.",
	ErrCodeBadPercentEncoding: "The URI contained a malformed %-escape sequence.",
	ErrCodePathTraversal:      "The normalized path attempted to climb above the document root.",
	ErrCodeDisallowedChar:     "The decoded path contained a character outside the allowed set.",
	ErrCodeDisallowedExt:      "The requested file extension is not on the configured allow list.",
	ErrCodeMethodNotAllowed:   "The method is not permitted for this resource.",
	ErrCodeSignatureMatch:     "The request matched a known attack signature. Check the matched rule's category.",
	ErrCodeRateLimited:        "The client exceeded its sliding-window request rate. It will be allowed again once older requests age out of the window.",
	ErrCodeClientBlocked:      "The client is within an active ban window imposed after repeated violations.",
	ErrCodeBodyTooLargeDoS:    "The request body exceeded the shaper's size ceiling for this client.",
	ErrCodeRegistryFull:       "The client registry is at capacity and no idle entry could be evicted. Raise the registry capacity or lower the idle TTL.",
	ErrCodeAuditChainBroken:   "The audit log's MAC chain did not verify; a record may be missing, reordered, or tampered with.",
	ErrCodeAuditKeyMissing:    "No audit signing key was found in the configured environment variable; the log is running in degraded, unsigned mode.",
}

// GetSuggestion returns the default suggestion for an error code.
// Returns empty string if no suggestion is defined.
func GetSuggestion(code string) string {
	return Suggestions[code]
}
