package domain

// Attachment 表示邮件附件，由收信管道写入。
//
// 附件超过大小限制时只保留元数据，此时 Omitted 为 true 且 ContentBase64 为空。
type Attachment struct {
	Filename      string `json:"filename,omitempty"`      // 文件名
	ContentType   string `json:"contentType,omitempty"`   // MIME类型
	ContentBase64 string `json:"contentBase64,omitempty"` // Base64 编码内容
	Omitted       bool   `json:"omitted,omitempty"`       // 内容是否被省略
	Size          int64  `json:"size,omitempty"`          // 大小（字节）
}
