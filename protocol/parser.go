// Package protocol implements the HTTP/1.x request-line and header
// state machine (spec §4.2). It recognizes well-formed requests,
// enforces hard size limits, and reports anomalous-but-recoverable
// transitions as soft signals rather than aborting, per spec §4.2:
// "Transitions other than the listed successors increment the client's
// error_count but do not abort (they are security signals, not just
// parse errors)."
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/byteness/vigil/errors"
)

// Result is the outcome of a successful parse: the Request plus any
// soft anomalies observed along the way.
type Result struct {
	Request   *Request
	Anomalies []string
}

// Parser recognizes HTTP/1.x requests from a byte stream under a fixed
// set of Limits.
type Parser struct {
	limits Limits
}

// NewParser constructs a Parser enforcing the given limits.
func NewParser(limits Limits) *Parser {
	return &Parser{limits: limits}
}

// Parse consumes one request from r. On a hard limit violation or
// malformed request line/headers it returns a VigilError and a Request
// left in StateError. Soft anomalies (an unlisted but non-fatal state
// transition) are collected in Result.Anomalies instead of aborting.
func (p *Parser) Parse(r io.Reader, now time.Time) (*Result, error) {
	br := bufio.NewReaderSize(r, p.limits.MaxLineLength+1)
	req := &Request{ReceivedAt: now, State: StateInit}
	res := &Result{Request: req}

	line, err := readLine(br, p.limits.MaxLineLength)
	if err != nil {
		req.State = StateError
		return res, p.malformed("failed to read request line", err)
	}

	if err := p.parseRequestLine(req, line); err != nil {
		req.State = StateError
		return res, err
	}
	advance(req, StateHeaders, res)

	headerBytes := 0
	for {
		line, err := readLine(br, p.limits.MaxLineLength)
		if err != nil {
			req.State = StateError
			return res, p.malformed("failed to read header line", err)
		}
		if line == "" {
			break
		}
		headerBytes += len(line) + 2
		if headerBytes > p.limits.MaxHeaderBytes {
			req.State = StateError
			return res, errors.New(errors.ErrCodeHeaderTooLong, errors.KindTooLarge,
				"total header bytes exceed the configured limit", "raise max_header_size or send fewer/smaller headers", nil)
		}
		if len(req.Headers) >= p.limits.MaxHeaderCount {
			req.State = StateError
			return res, errors.New(errors.ErrCodeTooManyHeaders, errors.KindTooLarge,
				"header count exceeds the configured limit", "raise max_header_count or send fewer headers", nil)
		}

		h, anomaly, err := p.parseHeaderLine(line)
		if err != nil {
			req.State = StateError
			return res, err
		}
		if anomaly != "" {
			res.Anomalies = append(res.Anomalies, anomaly)
		}
		req.Headers = append(req.Headers, h)
		advance(req, StateHeaders, res)
	}

	if cl, ok := req.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			req.State = StateError
			return res, errors.New(errors.ErrCodeBadRequestLine, errors.KindMalformed,
				fmt.Sprintf("invalid Content-Length %q", cl), "send a valid non-negative Content-Length", nil)
		}
		req.ContentLength = n
	}

	if req.ContentLength > p.limits.MaxBodySize {
		req.State = StateError
		return res, errors.New(errors.ErrCodeBodyTooLarge, errors.KindTooLarge,
			fmt.Sprintf("declared body size %d exceeds limit %d", req.ContentLength, p.limits.MaxBodySize),
			"raise max_request_size or send a smaller body", nil)
	}

	if req.ContentLength > 0 {
		advance(req, StateBody, res)
		body := make([]byte, req.ContentLength)
		if _, err := io.ReadFull(br, body); err != nil {
			req.State = StateError
			return res, p.malformed("failed to read request body", err)
		}
		req.Body = body
	}

	advance(req, StateComplete, res)
	return res, nil
}

// advance records the transition from req.State to next. Listed
// successors update state silently; anything else is logged as a soft
// anomaly and state still advances, per spec §4.2.
func advance(req *Request, next ParseState, res *Result) {
	if !req.State.CanTransitionTo(next) {
		res.Anomalies = append(res.Anomalies,
			fmt.Sprintf("unexpected transition %s -> %s", req.State, next))
	}
	req.State = next
}

// parseRequestLine parses "METHOD SP TARGET SP HTTP-VERSION" (spec
// §4.2) and splits TARGET into path/query at the first '?'.
func (p *Parser) parseRequestLine(req *Request, line string) error {
	if len(line) > p.limits.MaxLineLength {
		return errors.New(errors.ErrCodeLineTooLong, errors.KindTooLarge,
			"request line exceeds the configured limit", "raise max_uri_length or shorten the request", nil)
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return errors.New(errors.ErrCodeBadRequestLine, errors.KindMalformed,
			fmt.Sprintf("malformed request line %q", line), "send a request line of the form METHOD SP TARGET SP HTTP-VERSION", nil)
	}
	method, target, version := parts[0], parts[1], parts[2]

	if !p.limits.allowsMethod(method) {
		return errors.New(errors.ErrCodeUnsupportedMethod, errors.KindMalformed,
			fmt.Sprintf("method %q is not in the configured whitelist", method), "use one of the allowed_methods or extend the whitelist", nil)
	}
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return errors.New(errors.ErrCodeUnsupportedVersion, errors.KindMalformed,
			fmt.Sprintf("unsupported HTTP version %q", version), "use HTTP/1.0 or HTTP/1.1", nil)
	}
	if len(target) > p.limits.MaxURILength {
		return errors.New(errors.ErrCodeURITooLong, errors.KindTooLarge,
			"request target exceeds the configured URI length limit", "raise max_uri_length or shorten the request target", nil)
	}
	if err := checkControlChars(target); err != nil {
		return err
	}

	req.Method = method
	req.Version = version
	req.RawTarget = target
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		req.Path, req.Query = target[:idx], target[idx+1:]
	} else {
		req.Path = target
	}
	return nil
}

// parseHeaderLine splits "Name: Value" and validates character classes.
// A header name containing non-ASCII bytes is a hard failure (spec
// §4.2: "non-ASCII in header names rejected"); other irregularities
// (e.g. no space after the colon) are reported as soft anomalies.
func (p *Parser) parseHeaderLine(line string) (Header, string, error) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return Header{}, "", errors.New(errors.ErrCodeBadRequestLine, errors.KindMalformed,
			fmt.Sprintf("header line missing colon: %q", line), "send headers as \"Name: Value\"", nil)
	}
	name := line[:idx]
	value := strings.TrimSpace(line[idx+1:])

	if len(name) > p.limits.MaxHeaderNameLength {
		return Header{}, "", errors.New(errors.ErrCodeHeaderTooLong, errors.KindTooLarge,
			fmt.Sprintf("header name %q exceeds the configured limit", name), "raise max_header_size or shorten the header name", nil)
	}
	if len(value) > p.limits.MaxHeaderValueLength {
		return Header{}, "", errors.New(errors.ErrCodeHeaderTooLong, errors.KindTooLarge,
			fmt.Sprintf("header %q value exceeds the configured limit", name), "raise max_header_size or shorten the header value", nil)
	}
	if !isASCII(name) {
		return Header{}, "", errors.New(errors.ErrCodeControlCharacter, errors.KindMalformed,
			fmt.Sprintf("header name %q contains non-ASCII bytes", name), "send header names using only ASCII characters", nil)
	}
	if err := checkControlChars(value); err != nil {
		return Header{}, "", err
	}

	anomaly := ""
	if idx+1 < len(line) && line[idx+1] != ' ' {
		anomaly = fmt.Sprintf("header %q has no space after colon", name)
	}
	return Header{Name: name, Value: value}, anomaly, nil
}

// checkControlChars rejects control characters other than CR/LF/HT
// (spec §4.2).
func checkControlChars(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 && c != '\t' {
			return errors.New(errors.ErrCodeControlCharacter, errors.KindMalformed,
				"control character present outside CR/LF/HT", "remove control characters from the request", nil)
		}
		if c == 0x7f {
			return errors.New(errors.ErrCodeControlCharacter, errors.KindMalformed,
				"DEL character present in request", "remove control characters from the request", nil)
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// malformed wraps a low-level read error (EOF, oversized line from
// bufio, etc.) as a VigilError.
func (p *Parser) malformed(message string, cause error) error {
	return errors.New(errors.ErrCodeBadRequestLine, errors.KindMalformed, message,
		"verify the client sends a well-formed HTTP/1.x request", cause)
}

// readLine reads one CRLF- or LF-terminated line, stripped of its line
// ending, failing if it would exceed maxLen bytes before termination.
func readLine(br *bufio.Reader, maxLen int) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", err
		}
		sb.Write(chunk)
		if sb.Len() > maxLen {
			return "", fmt.Errorf("line exceeds %d bytes", maxLen)
		}
		if !isPrefix {
			return sb.String(), nil
		}
	}
}
