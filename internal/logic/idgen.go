package logic

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// ID生成冲突时的最大重试次数
const maxIdAttempts = 3

// generateId 生成记录ID：单调时钟 + 随机后缀
// 唯一性最终由存储层主键约束兜底，冲突时调用方重新生成
func generateId(prefix string) string {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// 随机源不可用时退化为纯时钟，主键约束仍然兜底
		return fmt.Sprintf("%s_%s", prefix, strconv.FormatInt(time.Now().UnixNano(), 36))
	}
	return fmt.Sprintf("%s_%s%s", prefix,
		strconv.FormatInt(time.Now().UnixNano(), 36),
		hex.EncodeToString(suffix[:]))
}
