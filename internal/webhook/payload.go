// Package webhook turns source-control webhook deliveries into feed events.
package webhook

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Payload is a read-only view over an untrusted webhook body. Every accessor
// reports whether the field was present; missing or null fields are never an
// error.
type Payload struct {
	root gjson.Result
}

// ParsePayload validates body as a JSON object.
func ParsePayload(body []byte) (Payload, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return Payload{}, ErrMalformedPayload
	}

	canonical, err := canonicalize(body)
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}

	return Payload{root: gjson.ParseBytes(canonical)}, nil
}

// canonicalize re-encodes a JSON object so that the last of any duplicated
// keys wins and invalid UTF-8 in strings becomes U+FFFD. Numbers keep the
// text they were written with.
func canonicalize(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// text returns the field at path when it is a string, or a number rendered
// as written in the body.
func (p Payload) text(path string) (string, bool) {
	r := p.root.Get(path)
	switch r.Type {
	case gjson.String, gjson.Number:
		return r.String(), true
	}
	return "", false
}

func (p Payload) SenderLogin() (string, bool)         { return p.text("sender.login") }
func (p Payload) Action() (string, bool)              { return p.text("action") }
func (p Payload) Ref() (string, bool)                 { return p.text("ref") }
func (p Payload) After() (string, bool)               { return p.text("after") }
func (p Payload) HeadCommitTimestamp() (string, bool) { return p.text("head_commit.timestamp") }
func (p Payload) PullRequestID() (string, bool)       { return p.text("pull_request.id") }
func (p Payload) HeadRef() (string, bool)             { return p.text("pull_request.head.ref") }
func (p Payload) BaseRef() (string, bool)             { return p.text("pull_request.base.ref") }
func (p Payload) CreatedAt() (string, bool)           { return p.text("pull_request.created_at") }
func (p Payload) MergedAt() (string, bool)            { return p.text("pull_request.merged_at") }

// Merged reports the pull request's merged flag. Absent counts as false.
func (p Payload) Merged() bool {
	return p.root.Get("pull_request.merged").Bool()
}
