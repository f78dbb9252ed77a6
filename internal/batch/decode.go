package batch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// part is one body part of a multipart document. Multipart parts carry their
// parsed children.
type part struct {
	header    textproto.MIMEHeader
	mediaType string
	content   []byte
	boundary  string
	children  []*part
}

// Decode parses a multipart batch response and correlates it with the
// operations of env. contentType is the response's Content-Type header; when it
// is empty the boundary is taken from the first delimiter line of body.
//
// Structural problems, including an embedded response that is truncated or has
// no valid status line, are returned as *ProtocolError. With
// WithPerOperationErrors a malformed embedded response is stored on its
// operation's Response instead. Operations the service did not answer get a
// Response whose Err is ErrNoResponse.
func (c *Codec) Decode(env *Envelope, contentType string, body []byte) (*Result, error) {
	if env == nil || len(env.slots) == 0 {
		return nil, fmt.Errorf("%w: decode requires the envelope returned by Encode", ErrInvalidBatch)
	}

	boundary, err := responseBoundary(contentType, body)
	if err != nil {
		return nil, err
	}
	parts, err := parseMultipart(body, boundary)
	if err != nil {
		return nil, err
	}
	if len(parts) > len(env.slots) {
		return nil, &ProtocolError{
			Part:     len(env.slots),
			Boundary: boundary,
			Expected: fmt.Sprintf("at most %d parts", len(env.slots)),
			Found:    fmt.Sprintf("%d parts", len(parts)),
		}
	}

	d := newCorrelator(env, c.perOperationErrors)
	for j, p := range parts {
		if err := d.slot(j, boundary, p); err != nil {
			return nil, err
		}
	}
	return d.result(), nil
}

// responseBoundary extracts the boundary parameter of a multipart content type,
// falling back to the first "--" line of the body.
func responseBoundary(contentType string, body []byte) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		line := firstLine(body)
		if !strings.HasPrefix(line, "--") || len(line) < 3 {
			return "", &ProtocolError{Part: -1, Expected: "boundary delimiter line", Found: quoteSnippet(line)}
		}
		return strings.TrimRight(line[2:], " \t"), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", &ProtocolError{Part: -1, Expected: "multipart/mixed content type", Found: quoteSnippet(contentType)}
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", &ProtocolError{Part: -1, Expected: "multipart/mixed content type", Found: mediaType}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", &ProtocolError{Part: -1, Expected: "boundary parameter", Found: "none"}
	}
	return boundary, nil
}

// parseMultipart splits body on boundary and parses each part's MIME headers.
// Parts that are themselves multipart are parsed recursively.
func parseMultipart(body []byte, boundary string) ([]*part, error) {
	raw, err := splitParts(body, boundary)
	if err != nil {
		return nil, err
	}

	parts := make([]*part, 0, len(raw))
	for i, r := range raw {
		p, err := parsePart(r)
		if err != nil {
			return nil, &ProtocolError{Part: i, Boundary: boundary, Expected: "part headers", Found: err.Error()}
		}
		if strings.HasPrefix(p.mediaType, "multipart/") {
			if p.boundary == "" {
				return nil, &ProtocolError{Part: i, Boundary: boundary, Expected: "boundary parameter", Found: "none"}
			}
			p.children, err = parseMultipart(p.content, p.boundary)
			if err != nil {
				return nil, err
			}
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// splitParts returns the raw bytes of every body part between the first
// delimiter and the close delimiter. The line break preceding each delimiter
// belongs to the delimiter. Bare LF line endings are accepted.
func splitParts(body []byte, boundary string) ([][]byte, error) {
	delim := []byte("--" + boundary)

	pos := delimiterAt(body, delim, 0)
	if pos < 0 {
		return nil, &ProtocolError{Part: 0, Boundary: boundary, Expected: string(delim), Found: quoteSnippet(firstLine(body))}
	}
	pos += len(delim)

	var parts [][]byte
	for n := 0; ; n++ {
		if bytes.HasPrefix(body[pos:], []byte("--")) {
			return parts, nil
		}

		// Transport padding, then the line break ending the delimiter line.
		for pos < len(body) && (body[pos] == ' ' || body[pos] == '\t') {
			pos++
		}
		switch {
		case bytes.HasPrefix(body[pos:], []byte("\r\n")):
			pos += 2
		case bytes.HasPrefix(body[pos:], []byte("\n")):
			pos++
		case pos >= len(body):
			return nil, &ProtocolError{Part: n, Boundary: boundary, Expected: string(delim) + "--", Found: "end of body"}
		default:
			return nil, &ProtocolError{Part: n, Boundary: boundary, Expected: "line break after delimiter", Found: quoteSnippet(firstLine(body[pos:]))}
		}

		start := pos
		next := delimiterAt(body, delim, start)
		if next < 0 {
			return nil, &ProtocolError{Part: n, Boundary: boundary, Expected: string(delim), Found: "end of body"}
		}

		end := next
		if end > start && body[end-1] == '\n' {
			end--
			if end > start && body[end-1] == '\r' {
				end--
			}
		}
		parts = append(parts, body[start:end])
		pos = next + len(delim)
	}
}

// delimiterAt finds the next line at or after from that starts with delim and
// is not merely a longer boundary sharing delim as a prefix.
func delimiterAt(body, delim []byte, from int) int {
	for from <= len(body) {
		i := bytes.Index(body[from:], delim)
		if i < 0 {
			return -1
		}
		at := from + i
		lineStart := at == 0 || body[at-1] == '\n'
		rest := body[at+len(delim):]
		terminated := len(rest) == 0 || rest[0] == '\r' || rest[0] == '\n' ||
			rest[0] == ' ' || rest[0] == '\t' || bytes.HasPrefix(rest, []byte("--"))
		if lineStart && terminated {
			return at
		}
		from = at + 1
	}
	return -1
}

func parsePart(raw []byte) (*part, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	header, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	content, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}

	p := &part{header: header, content: content, mediaType: "application/http"}
	if ct := header.Get("Content-Type"); ct != "" {
		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("content type %q: %w", ct, err)
		}
		p.mediaType = mediaType
		p.boundary = params["boundary"]
	}
	return p, nil
}

// correlator assigns decoded parts to the operations of an envelope.
type correlator struct {
	env       *Envelope
	responses []*Response
	tolerant  bool
}

func newCorrelator(env *Envelope, tolerant bool) *correlator {
	return &correlator{env: env, responses: make([]*Response, len(env.ops)), tolerant: tolerant}
}

// embedded parses the response of an application/http part. A malformed
// response fails the decode unless the correlator is tolerant.
func (d *correlator) embedded(index int, boundary string, p *part) (*Response, error) {
	resp, err := parseEmbeddedResponse(index, boundary, p)
	if err != nil {
		if !d.tolerant {
			return nil, err
		}
		resp.Err = err
	}
	return resp, nil
}

// slot handles top-level part j.
func (d *correlator) slot(j int, boundary string, p *part) error {
	s := d.env.slots[j]

	switch p.mediaType {
	case "application/http":
		resp, err := d.embedded(j, boundary, p)
		if err != nil {
			return err
		}
		if id := contentID(p, resp); id != "" {
			return d.assignByID(j, boundary, id, "", resp)
		}
		if !s.isChangeset() {
			return d.assign(j, boundary, s.op, resp)
		}
		// A single response in a changeset's place answers for the whole changeset.
		for _, idx := range s.members {
			if d.responses[idx] != nil {
				continue
			}
			member := *resp
			if err := d.assign(j, boundary, idx, &member); err != nil {
				return err
			}
		}
		return nil

	case "multipart/mixed":
		if !s.isChangeset() {
			return &ProtocolError{Part: j, Boundary: boundary, Expected: "application/http", Found: p.mediaType}
		}
		for k, child := range p.children {
			if child.mediaType != "application/http" {
				return &ProtocolError{Part: k, Boundary: p.boundary, Expected: "application/http", Found: child.mediaType}
			}
			resp, err := d.embedded(k, p.boundary, child)
			if err != nil {
				return err
			}
			if id := contentID(child, resp); id != "" {
				if err := d.assignByID(k, p.boundary, id, s.changeset, resp); err != nil {
					return err
				}
				continue
			}
			if k >= len(s.members) {
				return &ProtocolError{
					Part:     k,
					Boundary: p.boundary,
					Expected: fmt.Sprintf("at most %d parts", len(s.members)),
					Found:    "part " + strconv.Itoa(k),
				}
			}
			if err := d.assign(k, p.boundary, s.members[k], resp); err != nil {
				return err
			}
		}
		return nil
	}

	return &ProtocolError{Part: j, Boundary: boundary, Expected: "application/http or multipart/mixed", Found: p.mediaType}
}

// assignByID correlates a response through its Content-ID. When changeset is
// set the id must name one of its members.
func (d *correlator) assignByID(part int, boundary, id, changeset string, resp *Response) error {
	idx, ok := d.env.byID[id]
	if !ok {
		return &ProtocolError{Part: part, Boundary: boundary, Expected: "Content-ID of a batch operation", Found: strconv.Quote(id)}
	}
	if changeset != "" && d.env.member[id] != changeset {
		return &ProtocolError{Part: part, Boundary: boundary, Expected: "Content-ID of a member of changeset " + changeset, Found: strconv.Quote(id)}
	}
	return d.assign(part, boundary, idx, resp)
}

func (d *correlator) assign(part int, boundary string, idx int, resp *Response) error {
	id := d.env.ops[idx].ID
	if d.responses[idx] != nil {
		return &ProtocolError{Part: part, Boundary: boundary, Expected: "one response per operation", Found: "second response for " + strconv.Quote(id)}
	}
	resp.ID = id
	d.responses[idx] = resp
	return nil
}

func (d *correlator) result() *Result {
	res := &Result{
		Responses:  d.responses,
		byID:       make(map[string]*Response, len(d.responses)),
		changesets: make(map[string][]string, len(d.env.csIDs)),
		csOrder:    append([]string(nil), d.env.csIDs...),
	}
	for i, op := range d.env.ops {
		if res.Responses[i] == nil {
			res.Responses[i] = &Response{ID: op.ID, Err: ErrNoResponse}
		}
		res.byID[op.ID] = res.Responses[i]
	}
	for _, s := range d.env.slots {
		if !s.isChangeset() {
			continue
		}
		for _, idx := range s.members {
			res.changesets[s.changeset] = append(res.changesets[s.changeset], d.env.ops[idx].ID)
		}
	}
	return res
}

// parseEmbeddedResponse reads the HTTP response carried by an application/http
// part. On error the returned Response holds whatever could be read.
func parseEmbeddedResponse(index int, boundary string, p *part) (*Response, error) {
	httpResp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(p.content)), nil)
	if err != nil {
		return &Response{}, &ProtocolError{
			Part:     index,
			Boundary: boundary,
			Expected: "HTTP status line",
			Found:    quoteSnippet(firstLine(p.content)),
		}
	}
	defer httpResp.Body.Close()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
	}
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return resp, &ProtocolError{
			Part:     index,
			Boundary: boundary,
			Expected: "complete response body",
			Found:    err.Error(),
		}
	}
	resp.Body = body
	return resp, nil
}

// contentID returns the part's Content-ID, falling back to the embedded
// response headers. Angle brackets are stripped.
func contentID(p *part, resp *Response) string {
	id := p.header.Get("Content-ID")
	if id == "" && resp.Header != nil {
		id = resp.Header.Get("Content-ID")
	}
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return id
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), "\r")
}

func quoteSnippet(s string) string {
	const limit = 40
	if s == "" {
		return "empty input"
	}
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return strconv.Quote(s)
}
