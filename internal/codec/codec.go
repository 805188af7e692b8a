// Package codec implements the canonical byte encoding used for
// content-addressing: tag || 0x00 || compact_json(sort_keys_deep(value)).
package codec

import (
	"bytes"
	"encoding/json"

	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/telerr"
)

const separator = 0x00

// Canonicalize marshals value to JSON, injects a "type":tag discriminator
// into the resulting object, and prefixes the whole thing with tag and the
// null separator byte. encoding/json already emits map[string]any keys in
// ascending byte order at every nesting level, which is what gives the
// round trip through a generic interface{} value its key-sorted,
// deterministic shape; value's own struct tags are expected to encode the
// omit-when-empty semantics required by the wire format. The null-separated
// tag prefix duplicates the JSON "type" field; it is kept so the hash does
// not depend on encoding/json's own behavior for locating the discriminator.
func Canonicalize(tag string, value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, telerr.Wrap("marshal value", telerr.ErrSerialization)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, telerr.Wrap("unmarshal to generic value", telerr.ErrSerialization)
	}
	generic["type"] = tag

	body, err := json.Marshal(generic)
	if err != nil {
		return nil, telerr.Wrap("marshal sorted value", telerr.ErrSerialization)
	}

	var buf bytes.Buffer
	buf.WriteString(tag)
	buf.WriteByte(separator)
	buf.Write(body)
	return buf.Bytes(), nil
}

// ContentHash returns the objectid.ID of the canonical bytes for (tag,
// value).
func ContentHash(tag string, value interface{}) (objectid.ID, error) {
	bs, err := Canonicalize(tag, value)
	if err != nil {
		return objectid.ID{}, err
	}
	return objectid.Hash(bs), nil
}

// SplitTag splits canonical bytes at the first null separator, returning the
// tag string and the remaining JSON body.
func SplitTag(data []byte) (tag string, body []byte, err error) {
	idx := bytes.IndexByte(data, separator)
	if idx < 0 {
		return "", nil, telerr.Wrap("missing tag separator", telerr.ErrSerialization)
	}
	return string(data[:idx]), data[idx+1:], nil
}
