// Package broker translates lookups received from a client connection into
// secret store queries.
package broker

import (
	"context"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cnabio/credbroker/protocol"
	"github.com/cnabio/credbroker/secrets"
)

// DefaultAccessGroup scopes queries when no access group is configured.
const DefaultAccessGroup = "84RRJLK9H4.io.cloudeng.KeychainHelper"

// Adapter serves the lookups of a single connection. Adapters never share
// state with each other.
type Adapter struct {
	store       secrets.Store
	accessGroup string
	logger      *zap.Logger
}

// NewAdapter returns an Adapter querying store within accessGroup.
func NewAdapter(store secrets.Store, accessGroup string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: store, accessGroup: accessGroup, logger: logger}
}

// Query returns the store query issued for key.
func (a *Adapter) Query(key protocol.LookupKey) secrets.Query {
	return secrets.Query{
		AccessGroup:    a.accessGroup,
		Account:        key.Account,
		Service:        key.Service,
		Label:          key.Label,
		Synchronizable: secrets.SynchronizableAny,
		MatchLimit:     1,
	}
}

// Lookup resolves key against the store. Key fields are passed through
// unvalidated.
func (a *Adapter) Lookup(ctx context.Context, key protocol.LookupKey) protocol.Result {
	return a.lookup(ctx, key, a.logger)
}

// Handle answers a wire request.
func (a *Adapter) Handle(ctx context.Context, req *protocol.LookupRequest) *protocol.LookupResponse {
	logger := a.logger.With(zap.String("id", req.ID))
	if err := req.CheckVersion(); err != nil {
		logger.Warn("rejecting request", zap.String("version", req.Version), zap.Error(err))
		return protocol.NewLookupResponse(req.ID, protocol.Failed(err.Error()))
	}
	return protocol.NewLookupResponse(req.ID, a.lookup(ctx, req.Key(), logger))
}

func (a *Adapter) lookup(ctx context.Context, key protocol.LookupKey, logger *zap.Logger) protocol.Result {
	// Label and value are never logged.
	logger = logger.With(zap.String("account", key.Account), zap.String("service", key.Service))
	logger.Info("lookup requested")

	q := a.Query(key)
	logger.Info("querying secret store", zap.Int("match_limit", q.MatchLimit), zap.Stringer("synchronizable", q.Synchronizable))
	data, err := a.store.Lookup(ctx, q)

	res := toResult(data, err)
	fields := []zap.Field{zap.String("result", string(res.Kind))}
	if err != nil {
		fields = append(fields, zap.Int32("status", int32(secrets.StatusOf(err))))
	}
	switch res.Kind {
	case protocol.KindFound, protocol.KindNotFound:
		logger.Info("lookup finished", fields...)
	default:
		logger.Error("lookup failed", append(fields, zap.String("message", res.Message))...)
	}
	return res
}

func toResult(data []byte, err error) protocol.Result {
	switch {
	case err == nil:
		if !utf8.Valid(data) {
			return protocol.DecodeError(secrets.NewStatusError(secrets.StatusDecode, errors.New("value is not valid UTF-8")).Error())
		}
		return protocol.Found(string(data))
	case errors.Is(err, secrets.ErrNotFound):
		return protocol.NotFound(secrets.ErrorMessage(secrets.StatusItemNotFound))
	case secrets.StatusOf(err) == secrets.StatusDecode:
		return protocol.DecodeError(secrets.Describe(err))
	default:
		return protocol.Failed(secrets.Describe(err))
	}
}
