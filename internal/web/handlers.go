package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/newsletter/internal/errorz"
)

// mapper is a generic HTTP handler that maps requests to target
// function calls.
type mapper[IN any] struct {
	reqToInFunc func(r *http.Request) (IN, error)
	targetFunc  func(ctx context.Context, in IN) error
	onSuccess   func(w http.ResponseWriter, r *http.Request, in IN) error
	onFail      func(w http.ResponseWriter, r *http.Request, err error)
}

// newInputHandler creates a HTTP Handler that:
// 1. Maps the request to a value of type IN.
// 2. Calls the target func with that value.
// 3. Writes a status 200 response to the client if the target func was successful.
//
// Errors are written using the server error handler.
func newInputHandler[IN any](srv *Server, targetFunc func(context.Context, IN) error) *mapper[IN] {
	return &mapper[IN]{
		reqToInFunc: func(r *http.Request) (IN, error) {
			return defaultReqToIn[IN](srv, r)
		},
		targetFunc: targetFunc,
		onSuccess: func(w http.ResponseWriter, r *http.Request, in IN) error {
			w.WriteHeader(http.StatusOK)
			return nil
		},
		onFail: func(w http.ResponseWriter, r *http.Request, err error) {
			srv.handleError(w, r, err)
		},
	}
}

func (m *mapper[IN]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := m.reqToInFunc(r)
	if err != nil {
		m.onFail(w, r, err)
		return
	}

	if err := m.targetFunc(r.Context(), in); err != nil {
		m.onFail(w, r, err)
		return
	}

	if err := m.onSuccess(w, r, in); err != nil {
		m.onFail(w, r, err)
		return
	}
}

// defaultReqToIn is the default way to map a request to a struct.
// Both query parameters and form values are considered.
func defaultReqToIn[IN any](srv *Server, r *http.Request) (IN, error) {
	var in IN
	err := r.ParseForm()
	if err != nil {
		return in, err
	}

	err = srv.decoder.Decode(&in, r.Form)
	return in, decodeError(err)
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
