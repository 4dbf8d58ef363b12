package shared

import (
	"encoding/json"
	"net/http"
)

// maxRequestBody bounds request payloads; palette metadata is small.
const maxRequestBody = 1 << 20 // 1 MiB

// DecodeJSON decodes the request body into the given struct, rejecting
// unknown fields and oversized payloads.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
