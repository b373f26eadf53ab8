package util

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSessionToken 生成 32 字节随机会话令牌（hex 编码）。
// 令牌即提交答案的凭证，必须不可猜测。
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
