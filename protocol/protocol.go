// Package protocol defines the single operation exposed by the credential
// broker, its wire shapes and the gRPC plumbing used to carry them.
//
// Messages are JSON encoded. The service descriptor is declared by hand, so
// no generated code is involved.
package protocol

import (
	"fmt"

	"github.com/cnabio/credbroker/utils/ids"
	"github.com/cnabio/credbroker/utils/schemaversion"
)

const (
	// Version is the protocol version sent by this client.
	Version = "1.0.0"
	// VersionConstraint is the range of client versions the server accepts.
	VersionConstraint = "^1.0.0"
)

// LookupKey identifies the secret to retrieve. The fields are opaque to the
// broker.
type LookupKey struct {
	Account string
	Service string
	Label   string
}

// LookupRequest is the wire form of a lookup.
type LookupRequest struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
	Account string `json:"account"`
	Service string `json:"service"`
	Label   string `json:"label"`
}

// NewLookupRequest returns a request for key with a fresh id.
func NewLookupRequest(key LookupKey) *LookupRequest {
	return &LookupRequest{
		ID:      ids.ULID(),
		Version: Version,
		Account: key.Account,
		Service: key.Service,
		Label:   key.Label,
	}
}

// Key returns the lookup key carried by r.
func (r *LookupRequest) Key() LookupKey {
	return LookupKey{Account: r.Account, Service: r.Service, Label: r.Label}
}

// CheckVersion verifies the server can answer r. An empty version is
// treated as the current one.
func (r *LookupRequest) CheckVersion() error {
	if r.Version == "" {
		return nil
	}
	return schemaversion.SchemaVersion(r.Version).Compatible(VersionConstraint)
}

// Kind discriminates a Result.
type Kind string

const (
	KindFound       Kind = "found"
	KindNotFound    Kind = "not_found"
	KindFailed      Kind = "failed"
	KindDecodeError Kind = "decode_error"
)

// Result is the outcome of a lookup. A found result carries only Value,
// every other kind carries only Message.
type Result struct {
	Kind    Kind
	Value   string
	Message string
}

func Found(value string) Result {
	return Result{Kind: KindFound, Value: value}
}

func NotFound(message string) Result {
	return Result{Kind: KindNotFound, Message: message}
}

func Failed(message string) Result {
	return Result{Kind: KindFailed, Message: message}
}

func DecodeError(message string) Result {
	return Result{Kind: KindDecodeError, Message: message}
}

// LookupResponse is the wire form of a Result.
type LookupResponse struct {
	ID    string         `json:"id"`
	Value *string        `json:"value,omitempty"`
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError describes why no value was returned.
type ResponseError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewLookupResponse encodes res as the answer to request id.
func NewLookupResponse(id string, res Result) *LookupResponse {
	resp := &LookupResponse{ID: id}
	if res.Kind == KindFound {
		v := res.Value
		resp.Value = &v
		return resp
	}
	resp.Error = &ResponseError{Kind: res.Kind, Message: res.Message}
	return resp
}

// Result decodes r, rejecting responses that carry both or neither of a
// value and an error.
func (r *LookupResponse) Result() (Result, error) {
	switch {
	case r.Value != nil && r.Error != nil:
		return Result{}, fmt.Errorf("response %s carries both a value and an error", r.ID)
	case r.Value != nil:
		return Found(*r.Value), nil
	case r.Error != nil:
		switch r.Error.Kind {
		case KindNotFound, KindFailed, KindDecodeError:
			return Result{Kind: r.Error.Kind, Message: r.Error.Message}, nil
		default:
			return Result{}, fmt.Errorf("response %s has unknown error kind %q", r.ID, r.Error.Kind)
		}
	default:
		return Result{}, fmt.Errorf("response %s carries neither a value nor an error", r.ID)
	}
}
