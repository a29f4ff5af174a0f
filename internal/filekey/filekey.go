package filekey

import (
	"regexp"
	"strconv"
)

// 参考键是文件名开头的数字串（允许前导空白），对应台账的 A 列。
// 分隔符不做要求："123_nota.pdf"、"123 nota.pdf"、"123.pdf" 都能解析。
var keyRE = regexp.MustCompile(`^\s*([0-9]+)`)

// Resolve 从文件名解析参考键。纯函数，不做任何 I/O。
// 文件名不以数字开头时返回 ok=false。超出 int 范围的数字串
//（如 44 位 NF-e 访问键开头的文件名）同样返回 ok=false：
// 这类文件被归为"无键"而非"键未匹配"，两者都只是告警后跳过。
func Resolve(name string) (int, bool) {
	m := keyRE.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
