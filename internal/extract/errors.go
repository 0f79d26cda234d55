package extract

import "fmt"

// MissingFieldError 表示必填字段的来源节点不存在。
// 约束：必填字段缺失时整条记录作废。
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("缺少字段：%s", e.Field)
}

// MalformedStructuredDataError 表示页面上没有 JSON-LD Book 块，或该块无法解码。
type MalformedStructuredDataError struct {
	Reason string
	Err    error
}

func (e *MalformedStructuredDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("JSON-LD 结构化数据无效：%s：%v", e.Reason, e.Err)
	}
	return "JSON-LD 结构化数据无效：" + e.Reason
}

func (e *MalformedStructuredDataError) Unwrap() error { return e.Err }
