package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Fingerprint derives the cache key of an idempotent descriptor.
//
// Method, expanded path, sorted query and payload are each length-prefixed,
// so distinct descriptors never share an encoding. The payload is
// canonicalised through a JSON round trip: a struct and a map with the same
// fields produce the same key, and map keys are ordered. The key is the
// SHA-256 of that encoding. Byte payloads that are not JSON are hashed as is.
func Fingerprint(d Descriptor) (string, error) {
	payload, err := canonicalJSON(d.Payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", d.Operation, err)
	}

	var buf bytes.Buffer
	for _, part := range [][]byte{
		[]byte(d.method()),
		[]byte(d.expandedPath()),
		[]byte(d.Query.Encode()),
		payload,
	} {
		buf.WriteString(strconv.Itoa(len(part)))
		buf.WriteByte(':')
		buf.Write(part)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch p := v.(type) {
	case []byte:
		if !json.Valid(p) {
			return p, nil
		}
		raw = p
	case json.RawMessage:
		if !json.Valid(p) {
			return p, nil
		}
		raw = p
	default:
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
