package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/clientonboarding/pkg/utils"
)

// referenceSuffixLength 参考编号随机后缀长度
const referenceSuffixLength = 6

// NewReferenceNumber 生成参考编号，格式 ONB-<yyyymmdd>-<6 位大写字母数字>。
// 不保证全局唯一，数据库唯一索引兜底。
func NewReferenceNumber(now time.Time) string {
	suffix := strings.ToUpper(utils.RandString(referenceSuffixLength))
	return fmt.Sprintf("ONB-%s-%s", now.Format("20060102"), suffix)
}
