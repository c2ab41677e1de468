package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
)

// errorBody is the error envelope: {"error":{"code":...,"message":...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    catalog.Code      `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code catalog.Code, message string) {
	s.respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondResult writes a mutation result. Successes are written as the
// result itself with okStatus; failures use the error envelope.
func (s *Server) respondResult(w http.ResponseWriter, okStatus int, res catalog.Result) {
	if res.OK {
		setVersion(w, res.Version)
		s.respondJSON(w, okStatus, res)
		return
	}
	s.respondJSON(w, statusFor(res.Code), errorBody{Error: errorDetail{
		Code:    res.Code,
		Message: res.Message,
		Fields:  res.Fields,
	}})
}

func statusFor(code catalog.Code) int {
	switch code {
	case catalog.CodeValidation:
		return http.StatusBadRequest
	case catalog.CodeDuplicateName:
		return http.StatusConflict
	case catalog.CodeNotFound:
		return http.StatusNotFound
	case catalog.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
