package near

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/rpc/v2/json2"
)

var ErrNullResult = errors.New("rpc returned a null result")

// Error is a failure reported by a NEAR node, either as a JSON-RPC error or
// as the failure status of a transaction outcome.
type Error struct {
	Code    int
	Message string
	Data    string
}

func (e *Error) Error() string {
	if len(e.Data) <= 0 {
		return e.Message
	}
	if len(e.Message) <= 0 {
		return e.Data
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Data)
}

func newRPCError(err *json2.Error) *Error {
	return &Error{
		Code:    int(err.Code),
		Message: err.Message,
		Data:    stringifyData(err.Data),
	}
}

func stringifyData(data interface{}) string {
	switch d := data.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		buf, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(buf)
	}
}

func IsAccountNotFound(err error) bool {
	if IsAccessKeyNotFound(err) {
		return false
	}
	return errorContains(err, "UNKNOWN_ACCOUNT", "does not exist")
}

func IsAccessKeyNotFound(err error) bool {
	if errorContains(err, "UNKNOWN_ACCESS_KEY") {
		return true
	}
	return errorContains(err, "access key") && errorContains(err, "does not exist")
}

func IsAlreadyExists(err error) bool {
	return errorContains(err, "already exists", "AccountAlreadyExists")
}

func IsAlreadyInitialized(err error) bool {
	return errorContains(err, "Already initialized", "already been initialized")
}

// IsKeyAlreadyAdded reports whether err means the key, or the guest it was
// requested for, is already present on chain.
func IsKeyAlreadyAdded(err error) bool {
	return errorContains(
		err,
		"guest account already added",
		"The account is already registered",
		"AddKeyAlreadyExists",
		"already used for an existing access key",
	)
}

func IsInvalidNonce(err error) bool {
	return errorContains(err, "InvalidNonce")
}

func errorContains(err error, patterns ...string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
