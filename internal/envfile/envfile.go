package envfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultPath .env 的固定位置
//
// - Linux 设备：/etc/portainer-monitor/.env
// - 其它平台：二进制同目录 .env（便于本地调试）
func DefaultPath() string {
	if runtime.GOOS == "linux" {
		return "/etc/portainer-monitor/.env"
	}
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(".", ".env")
	}
	return filepath.Join(filepath.Dir(exe), ".env")
}

// Bootstrap 首次运行写入模板，然后加载
func Bootstrap() {
	_ = EnsureAndLoad(DefaultPath())
}

// EnsureAndLoad 文件不存在时写入模板，再加载
func EnsureAndLoad(dotenvPath string) error {
	if _, err := os.Stat(dotenvPath); os.IsNotExist(err) {
		_ = os.MkdirAll(filepath.Dir(dotenvPath), 0o755)
		// 含凭据，只给属主读写
		_ = os.WriteFile(dotenvPath, []byte(envExample), 0o600)
	}
	return Load(dotenvPath)
}

// Load 解析 dotenv（KEY=VALUE），只会 set 尚未在外部环境存在的键。
func Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		k, v, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("setenv %s: %w", k, err)
		}
	}
	return sc.Err()
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if rest, found := strings.CutPrefix(line, "export "); found {
		line = strings.TrimSpace(rest)
	}
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	k = strings.TrimSpace(k)
	if k == "" {
		return "", "", false
	}
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	return k, v, true
}

const envExample = `# portainer-monitor 环境变量模板（首次运行会自动写入）
#
# 说明：
# - 已在外部环境中设置的变量优先，不会被这里覆盖
# - Portainer 凭据二选一：API Key，或用户名 + 密码

# Portainer 访问令牌（可选；设置后忽略用户名/密码）
PORTAINER_API_KEY=

# Portainer 账号（可选）
PORTAINER_USERNAME=
PORTAINER_PASSWORD=

# 配置文件路径（可选；默认 Linux: /etc/portainer-monitor/config.json）
PMON_CONFIG_PATH=

# 日志目录（可选；默认 /var/log/portainer-monitor）
PMON_LOG_DIR=
`
