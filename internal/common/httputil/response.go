package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// APIResponse is the unified response format for all APIs
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONResponse sends a JSON response with the unified format
func JSONResponse(ctx *fasthttp.RequestCtx, success bool, message string, data interface{}, statusCode int) {
	resp := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}
	body, _ := json.Marshal(resp)
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// JSONData is a convenience wrapper for success responses with data
func JSONData(ctx *fasthttp.RequestCtx, data interface{}, statusCode int) {
	JSONResponse(ctx, true, "", data, statusCode)
}

// ErrorBody is the error payload carrying a stable machine-readable code.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONErrorCode sends an error response with a stable error code alongside
// the human-readable message.
func JSONErrorCode(ctx *fasthttp.RequestCtx, code, message string, statusCode int) {
	body, _ := json.Marshal(struct {
		Success bool      `json:"success"`
		Error   ErrorBody `json:"error"`
	}{Success: false, Error: ErrorBody{Code: code, Message: message}})
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
