package batch

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/nlstn/go-odata-client/internal/preference"
)

const crlf = "\r\n"

// Envelope is an encoded batch request
type Envelope struct {
	// ContentType is the value for the request's Content-Type header
	ContentType string
	Boundary    string
	Body        []byte
	// Prefer is the value for the request's Prefer header, if any
	Prefer string

	ops    []Operation
	slots  []slot
	csIDs  []string
	byID   map[string]int
	member map[string]string
}

// Header returns the HTTP headers a batch request must carry.
func (e *Envelope) Header() http.Header {
	h := http.Header{}
	h.Set("Content-Type", e.ContentType)
	if e.Prefer != "" {
		h.Set("Prefer", e.Prefer)
	}
	return h
}

// Operations returns the encoded operations in original order.
func (e *Envelope) Operations() []Operation {
	return append([]Operation(nil), e.ops...)
}

// slot is one top-level part: a single operation or a changeset.
type slot struct {
	op        int
	changeset string
	members   []int
	boundary  string
}

func (s slot) isChangeset() bool { return s.changeset != "" }

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Encode validates the operations and renders them as a multipart/mixed body.
// Operations join a changeset either through Operation.ChangesetID or by being
// listed in Changeset.OperationIDs. Each changeset is emitted at the position
// of its first member; its members keep the changeset's listed order followed
// by any further operations naming it.
func (c *Codec) Encode(ops []Operation, changesets []Changeset) (*Envelope, error) {
	env, err := plan(ops, changesets)
	if err != nil {
		return nil, err
	}

	env.Boundary, err = c.newBoundary("batch", env.ops)
	if err != nil {
		return nil, err
	}
	for i := range env.slots {
		s := &env.slots[i]
		if !s.isChangeset() {
			continue
		}
		members := make([]Operation, len(s.members))
		for j, idx := range s.members {
			members[j] = env.ops[idx]
		}
		s.boundary, err = c.newBoundary("changeset", members)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	for _, s := range env.slots {
		buf.WriteString("--" + env.Boundary + crlf)
		if !s.isChangeset() {
			writeOperationPart(&buf, env.ops[s.op])
			continue
		}
		buf.WriteString("Content-Type: multipart/mixed; boundary=" + s.boundary + crlf)
		buf.WriteString(crlf)
		for _, idx := range s.members {
			buf.WriteString("--" + s.boundary + crlf)
			writeOperationPart(&buf, env.ops[idx])
		}
		buf.WriteString("--" + s.boundary + "--" + crlf)
	}
	buf.WriteString("--" + env.Boundary + "--" + crlf)

	env.Body = buf.Bytes()
	env.ContentType = "multipart/mixed; boundary=" + env.Boundary
	if c.continueOnError {
		env.Prefer = preference.Preference{ContinueOnError: true}.String()
	}
	return env, nil
}

// writeOperationPart writes the MIME headers and the embedded HTTP request,
// followed by the CRLF that precedes the next delimiter.
func writeOperationPart(buf *bytes.Buffer, op Operation) {
	buf.WriteString("Content-Type: application/http" + crlf)
	buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
	buf.WriteString("Content-ID: " + op.ID + crlf)
	buf.WriteString(crlf)

	buf.WriteString(op.Method + " " + op.Path + " HTTP/1.1" + crlf)
	hasContentType := false
	for _, h := range op.Headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			hasContentType = true
		}
		buf.WriteString(h.Name + ": " + h.Value + crlf)
	}
	if len(op.Body) > 0 && !hasContentType {
		buf.WriteString("Content-Type: application/json" + crlf)
	}
	buf.WriteString(crlf)
	buf.Write(op.Body)
	buf.WriteString(crlf)
}

// plan validates the input and lays out the top-level parts.
func plan(ops []Operation, changesets []Changeset) (*Envelope, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: no operations", ErrInvalidBatch)
	}

	env := &Envelope{
		ops:    make([]Operation, len(ops)),
		byID:   make(map[string]int, len(ops)),
		member: make(map[string]string),
	}
	for i, op := range ops {
		op.Method = strings.ToUpper(strings.TrimSpace(op.Method))
		switch {
		case op.ID == "" || strings.ContainsAny(op.ID, "\r\n"):
			return nil, fmt.Errorf("%w: operation %d has an invalid id %q", ErrInvalidBatch, i, op.ID)
		case !allowedMethods[op.Method]:
			return nil, fmt.Errorf("%w: operation %s has unsupported method %q", ErrInvalidBatch, op.ID, op.Method)
		case strings.TrimSpace(op.Path) == "" || strings.ContainsAny(op.Path, " \r\n"):
			return nil, fmt.Errorf("%w: operation %s has an invalid path %q", ErrInvalidBatch, op.ID, op.Path)
		}
		for _, h := range op.Headers {
			if h.Name == "" || strings.ContainsAny(h.Name+h.Value, "\r\n") || strings.Contains(h.Name, ":") {
				return nil, fmt.Errorf("%w: operation %s has an invalid header %q", ErrInvalidBatch, op.ID, h.Name)
			}
		}
		if _, dup := env.byID[op.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate operation id %q", ErrInvalidBatch, op.ID)
		}
		env.byID[op.ID] = i
		env.ops[i] = op
	}

	members := make(map[string][]int, len(changesets))
	for _, cs := range changesets {
		if cs.ID == "" {
			return nil, fmt.Errorf("%w: changeset without id", ErrInvalidBatch)
		}
		if _, dup := members[cs.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate changeset id %q", ErrInvalidBatch, cs.ID)
		}
		members[cs.ID] = nil
		env.csIDs = append(env.csIDs, cs.ID)
		for _, opID := range cs.OperationIDs {
			idx, ok := env.byID[opID]
			if !ok {
				return nil, fmt.Errorf("%w: changeset %s lists unknown operation %q", ErrInvalidBatch, cs.ID, opID)
			}
			if err := env.join(cs.ID, idx); err != nil {
				return nil, err
			}
			members[cs.ID] = append(members[cs.ID], idx)
		}
	}
	for i, op := range env.ops {
		if op.ChangesetID == "" {
			continue
		}
		if _, ok := members[op.ChangesetID]; !ok {
			return nil, fmt.Errorf("%w: operation %s names unknown changeset %q", ErrInvalidBatch, op.ID, op.ChangesetID)
		}
		if env.member[op.ID] == op.ChangesetID {
			continue
		}
		if err := env.join(op.ChangesetID, i); err != nil {
			return nil, err
		}
		members[op.ChangesetID] = append(members[op.ChangesetID], i)
	}

	placed := make(map[string]bool, len(members))
	for i, op := range env.ops {
		csID, ok := env.member[op.ID]
		if !ok {
			env.slots = append(env.slots, slot{op: i})
			continue
		}
		if placed[csID] {
			continue
		}
		placed[csID] = true
		env.slots = append(env.slots, slot{op: -1, changeset: csID, members: members[csID]})
	}
	for _, id := range env.csIDs {
		if len(members[id]) == 0 {
			return nil, fmt.Errorf("%w: changeset %s is empty", ErrInvalidBatch, id)
		}
	}
	return env, nil
}

func (e *Envelope) join(changeset string, idx int) error {
	op := e.ops[idx]
	if current, ok := e.member[op.ID]; ok {
		return fmt.Errorf("%w: operation %s is in changesets %s and %s", ErrInvalidBatch, op.ID, current, changeset)
	}
	if op.ChangesetID != "" && op.ChangesetID != changeset {
		return fmt.Errorf("%w: operation %s is in changesets %s and %s", ErrInvalidBatch, op.ID, op.ChangesetID, changeset)
	}
	if op.Method == http.MethodGet {
		return fmt.Errorf("%w: GET operation %s cannot be part of changeset %s", ErrInvalidBatch, op.ID, changeset)
	}
	e.member[op.ID] = changeset
	return nil
}
