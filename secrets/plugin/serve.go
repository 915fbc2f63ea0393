package plugin

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cnabio/credbroker/secrets"
)

// Serve answers a single Request read from r by looking it up in store and
// writing the Response to w. It is the program side of Store.
//
// Lookup failures are reported in the Response; the returned error is only
// set when the exchange itself could not be completed.
func Serve(ctx context.Context, store secrets.Store, r io.Reader, w io.Writer, logger *zap.Logger) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return errors.Wrap(err, "unable to decode plugin request")
	}
	logger.Debug("plugin request",
		zap.String("id", req.ID),
		zap.String("account", req.Account),
		zap.String("service", req.Service))

	resp := Response{ID: req.ID}
	sync, err := secrets.ParseSynchronizable(req.Synchronizable)
	if err != nil {
		resp.Error = &Error{Status: secrets.StatusParam, Message: secrets.ErrorMessage(secrets.StatusParam), Detail: err.Error()}
		return encode(w, resp)
	}

	data, err := store.Lookup(ctx, secrets.Query{
		AccessGroup:    req.AccessGroup,
		Account:        req.Account,
		Service:        req.Service,
		Label:          req.Label,
		Synchronizable: sync,
		MatchLimit:     1,
	})
	if err != nil {
		resp.Error = toError(err)
		logger.Debug("plugin lookup failed", zap.String("id", req.ID), zap.Int32("status", int32(resp.Error.Status)))
		return encode(w, resp)
	}
	if data == nil {
		data = []byte{}
	}
	resp.Contents = data
	return encode(w, resp)
}

func toError(err error) *Error {
	code := secrets.StatusOf(err)
	e := &Error{Status: code, Message: secrets.ErrorMessage(code)}
	var se *secrets.StatusError
	if errors.As(err, &se) {
		if se.Message != "" {
			e.Message = se.Message
		}
		if se.Err != nil {
			e.Detail = se.Err.Error()
		}
	} else {
		e.Detail = err.Error()
	}
	return e
}

func encode(w io.Writer, resp Response) error {
	return errors.Wrap(json.NewEncoder(w).Encode(resp), "unable to encode plugin response")
}
