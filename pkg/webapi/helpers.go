package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/rs/zerolog/log"
)

var httpCodeForError = map[giga.ErrorCode]int{
	giga.BadRequest:    http.StatusBadRequest,
	giga.NotFound:      http.StatusNotFound,
	giga.AlreadyExists: http.StatusConflict,
	giga.InvalidState:  http.StatusConflict,
	giga.InvalidAmount: http.StatusBadRequest,
	giga.NotAvailable:  http.StatusServiceUnavailable,
	giga.DBConflict:    http.StatusServiceUnavailable,
	giga.Unauthorized:  http.StatusUnauthorized,
	giga.UnknownToken:  http.StatusBadRequest,
}

func httpStatusForError(code giga.ErrorCode) int {
	status, found := httpCodeForError[code]
	if !found {
		return http.StatusInternalServerError
	}
	return status
}

type envelope struct {
	Success bool `json:"success"`
}

// sendResponse marshals payload into the body fields of an
// {success:true, ...} envelope. payload is marshaled to a JSON object
// and a "success": true field is added to it -- callers pass a struct
// holding the fields the route table promises, never a bare value.
func sendResponse(w http.ResponseWriter, payload any) {
	merged, err := mergeSuccess(payload)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "marshal", fmt.Sprintf("in json.Marshal: %s", err.Error()), "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(merged)
}

func mergeSuccess(payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["success"] = json.RawMessage("true")
	return json.Marshal(fields)
}

func sendBadRequest(w http.ResponseWriter, message string, parameter string) {
	sendErrorResponse(w, http.StatusBadRequest, giga.BadRequest, message, parameter)
}

func sendError(w http.ResponseWriter, where string, err error) {
	var info giga.ErrorInfo
	if errors.As(err, &info) {
		status := httpStatusForError(info.Code)
		message := fmt.Sprintf("%s: %s", where, info.Msg)
		sendErrorResponse(w, status, info.Code, message, "")
	} else {
		message := fmt.Sprintf("%s: %s", where, err.Error())
		sendErrorResponse(w, http.StatusInternalServerError, giga.NotAvailable, message, "")
	}
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code giga.ErrorCode, message string, parameter string) {
	log.Warn().Str("code", string(code)).Str("parameter", parameter).Msg(message)
	payload := struct {
		Success   bool          `json:"success"`
		Error     giga.ErrorCode `json:"error"`
		Message   string        `json:"message"`
		Parameter string        `json:"parameter,omitempty"`
	}{false, code, message, parameter}
	b, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	w.Write(b)
}
