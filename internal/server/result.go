package server

// HttpResult 统一响应结构
type HttpResult struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg"`
	Data  interface{} `json:"data,omitempty"`
	Total int64       `json:"total,omitempty"`
}

func resultOK(data interface{}) *HttpResult {
	return &HttpResult{Code: 200, Msg: "success", Data: data}
}

func resultErr(code int, msg string) *HttpResult {
	return &HttpResult{Code: code, Msg: msg}
}
