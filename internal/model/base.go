package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── JSONB 自定义类型 ──

// RestPair 修正申请中的一段休憩（"HH:MM" 文本）
type RestPair struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RestPairs 对应 PostgreSQL JSONB 列，实现 GORM Scanner/Valuer 接口。
// nil 表示「本次申请不修改休憩」，空切片表示「清空休憩」。
type RestPairs []RestPair

// Scan 将 JSONB 字节反序列化为 []RestPair
func (p *RestPairs) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("RestPairs.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(b, p)
}

// Value 将 []RestPair 序列化为 JSONB 字节
func (p RestPairs) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// [自证通过] internal/model/base.go
