// Package httpapi is the JSON API served by floodwatch-api.
package httpapi

// Result envelope shared by every JSON endpoint.
// - code: 2000 on success
// - type: "success" | "error"
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired goes with HTTP 401; clients drop the session and
	// send the user back to sign-in.
	ResultTokenExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
