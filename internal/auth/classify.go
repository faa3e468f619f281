package auth

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// providerError is the decoded form of a GoTrue error response.
type providerError struct {
	Status  int
	Code    string
	Message string
}

// gotrue-go reports non-2xx responses as "response status code <n>: <body>".
var statusPattern = regexp.MustCompile(`(?s)^response status code (\d+)(?::\s*(.*))?$`)

// parseProviderError extracts the status and body of a GoTrue error. ok is false for
// transport failures that never produced a response.
func parseProviderError(err error) (providerError, bool) {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return providerError{}, false
	}
	status, _ := strconv.Atoi(m[1])
	pe := providerError{Status: status}
	decodeProviderBody(&pe, []byte(m[2]))
	return pe, true
}

func decodeProviderBody(pe *providerError, body []byte) {
	var payload struct {
		ErrorCode        string `json:"error_code"`
		Code             any    `json:"code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		pe.Message = strings.TrimSpace(string(body))
		return
	}

	pe.Code = payload.ErrorCode
	if pe.Code == "" {
		if s, ok := payload.Code.(string); ok {
			pe.Code = s
		}
	}
	if pe.Code == "" {
		pe.Code = payload.Error
	}

	for _, msg := range []string{payload.Msg, payload.ErrorDescription, payload.Message} {
		if msg != "" {
			pe.Message = msg
			break
		}
	}
	if pe.Message == "" {
		pe.Message = payload.Error
	}
}

// classify maps a provider error onto an ErrorKind. Codes are checked first, then
// the fixed messages older GoTrue versions return without a code.
func classify(pe providerError) ErrorKind {
	switch pe.Code {
	case "user_already_exists", "email_exists":
		return KindAlreadyRegistered
	case "weak_password":
		return KindWeakPassword
	case "email_address_invalid", "email_address_not_authorized":
		return KindInvalidEmail
	case "invalid_credentials":
		return KindInvalidCredentials
	case "email_not_confirmed":
		return KindEmailNotConfirmed
	case "over_request_rate_limit", "over_email_send_rate_limit", "over_sms_send_rate_limit":
		return KindRateLimited
	case "session_not_found", "session_expired", "bad_jwt", "no_authorization", "refresh_token_not_found":
		return KindSessionMissing
	}

	switch {
	case pe.Message == "User already registered":
		return KindAlreadyRegistered
	case strings.HasPrefix(pe.Message, "Password should be"):
		return KindWeakPassword
	case strings.HasPrefix(pe.Message, "Unable to validate email address"):
		return KindInvalidEmail
	case pe.Message == "Invalid login credentials":
		return KindInvalidCredentials
	case pe.Message == "Email not confirmed":
		return KindEmailNotConfirmed
	}

	switch pe.Status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindSessionMissing
	}
	return KindProvider
}

// providerFailure converts an error from the GoTrue client into an *Error.
func providerFailure(op Operation, err error) *Error {
	pe, ok := parseProviderError(err)
	if !ok {
		return newError(op, KindUnexpected, err)
	}
	e := newError(op, classify(pe), err)
	e.Detail = pe.Message
	return e
}
