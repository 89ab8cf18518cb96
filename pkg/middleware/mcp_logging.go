package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/logging"
)

// MCPRequestLogger returns middleware that logs MCP JSON-RPC tool calls.
// It reads the request body to extract the tool name and arguments, and the
// response body to tell errors from successes. Pass nil logger to disable.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			// Not every request on the endpoint is a tool call; a parse
			// failure just leaves the fields empty.
			var rpcReq jsonRPCRequest
			_ = json.Unmarshal(bodyBytes, &rpcReq)

			toolName := rpcReq.Params.Name
			logger.Debug("MCP request",
				zap.String("method", rpcReq.Method),
				zap.String("tool", toolName),
				zap.Any("arguments", sanitizeArguments(rpcReq.Params.Arguments)),
			)

			recorder := &mcpResponseRecorder{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				return
			}

			if rpcResp.Error != nil {
				logger.Debug("MCP response error",
					zap.String("tool", toolName),
					zap.Int("error_code", rpcResp.Error.Code),
					zap.String("error_message", rpcResp.Error.Message),
					zap.Duration("duration", duration),
				)
			} else {
				logger.Debug("MCP response success",
					zap.String("tool", toolName),
					zap.Duration("duration", duration),
				)
			}
		})
	}
}

// jsonRPCRequest is the subset of a tools/call request this logger reads.
type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result interface{}   `json:"result"`
	Error  *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder captures the response body while writing it through.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// sanitizeArguments redacts sensitive fields and truncates long values so a
// pasted question cannot flood the log.
func sanitizeArguments(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}

	sensitiveKeywords := []string{"password", "secret", "token", "key", "credential"}
	result := make(map[string]interface{})

	for k, v := range args {
		lowerKey := strings.ToLower(k)
		isSensitive := false
		for _, keyword := range sensitiveKeywords {
			if strings.Contains(lowerKey, keyword) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			result[k] = "[REDACTED]"
			continue
		}

		if str, ok := v.(string); ok {
			result[k] = logging.TruncateString(str, 200)
		} else {
			result[k] = v
		}
	}

	return result
}
