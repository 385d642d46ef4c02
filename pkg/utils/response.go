package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody 失败响应的统一结构
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondSuccess 发送 success=true 的响应，fields 为附加字段
func RespondSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	RespondJSON(w, status, body)
}

// RespondErrorBody 发送带错误类型与详情的错误响应
func RespondErrorBody(w http.ResponseWriter, status int, body ErrorBody) {
	body.Success = false
	RespondJSON(w, status, body)
}
