package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/signalsfoundry/ascent-simulator/internal/logging"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxBodyBytes = 1 << 20
)

// wantsMsgpack reports whether the client asked for a msgpack body.
func wantsMsgpack(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		for _, part := range strings.Split(v, ",") {
			mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
			if mt == contentTypeMsgpack || mt == "application/x-msgpack" {
				return true
			}
		}
	}
	return false
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	var (
		body []byte
		ct   string
		err  error
	)
	if wantsMsgpack(r) {
		ct = contentTypeMsgpack
		body, err = msgpack.Marshal(v)
	} else {
		ct = contentTypeJSON
		body, err = json.Marshal(v)
		body = append(body, '\n')
	}
	if err != nil {
		s.log.Error(r.Context(), "encode response", logging.Err(err))
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Err(err),
		)
	}
	s.write(w, r, status, errorBody{Error: err.Error(), Status: status})
}

// decodeJSON strictly decodes a bounded JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", ErrInvalidRequest, err)
	}
	return nil
}
