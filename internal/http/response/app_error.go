package response

import "github.com/gin-gonic/gin"

// AppError 带业务码的错误包装，handler 层用来统一落日志和出参
type AppError struct {
	Code    int    // 业务状态码，见 codes.go
	Message string // 面向调用方的提示
	Err     error  // 原始错误，只进日志不出参
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Respond 按包装的业务码输出统一错误响应
func (e *AppError) Respond(c *gin.Context) {
	Error(c, e.Code, e.Message)
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
