package portainer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portainer-monitor/config"
	"portainer-monitor/internal/logger"
)

var (
	ErrNoEndpoint   = errors.New("portainer: no endpoint available")
	ErrUnauthorized = errors.New("portainer: unauthorized")
	ErrNoCredential = errors.New("portainer: neither api key nor username/password configured")
)

// 令牌剩余有效期低于该值时重新登录
const tokenRefreshMargin = 30 * time.Second

// Endpoint Portainer 环境
type Endpoint struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
	URL  string `json:"URL"`
}

// Container docker 容器摘要（containers/json 的子集）
type Container struct {
	ID     string   `json:"Id"`
	Names  []string `json:"Names"`
	Image  string   `json:"Image"`
	State  string   `json:"State"`
	Status string   `json:"Status"`
}

// Name 去掉 docker 名称前缀的 "/"
func (c Container) Name() string {
	if len(c.Names) == 0 {
		if len(c.ID) > 12 {
			return c.ID[:12]
		}
		return c.ID
	}
	return strings.TrimPrefix(c.Names[0], "/")
}

// Client Portainer HTTP 客户端。
// 有 API Key 时直接用 X-API-Key，否则用用户名密码换 JWT。
type Client struct {
	BaseURL  string
	APIKey   string
	Username string
	Password string
	HTTP     *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	now      func() time.Time
}

// NewClient 按配置创建客户端
func NewClient(cfg config.PortainerConfig) *Client {
	c := &Client{
		BaseURL:  cfg.BaseURL(),
		APIKey:   cfg.APIKey,
		Username: cfg.Username,
		Password: cfg.Password,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.UseTLS {
		// 自建 Portainer 常用自签证书
		c.HTTP.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return c
}

func (c *Client) ensureHTTP() {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if c.now == nil {
		c.now = time.Now
	}
}

func (c *Client) base() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

// Login 用户名密码登录，返回 JWT
func (c *Client) Login(ctx context.Context) (string, error) {
	c.ensureHTTP()
	if c.Username == "" {
		return "", ErrNoCredential
	}
	b, _ := json.Marshal(map[string]string{"username": c.Username, "password": c.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/api/auth", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrUnauthorized
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("portainer auth status=%s", resp.Status)
	}
	var out struct {
		JWT string `json:"jwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("portainer auth: %w", err)
	}
	if out.JWT == "" {
		return "", fmt.Errorf("portainer auth: empty token")
	}

	exp := tokenExpiry(out.JWT)
	c.mu.Lock()
	c.token, c.tokenExp = out.JWT, exp
	c.mu.Unlock()
	logger.Debug("Portainer 登录成功，令牌有效期至 %s", exp.Format(time.RFC3339))
	return out.JWT, nil
}

// tokenExpiry 读取 JWT 的 exp（不校验签名，签名由 Portainer 负责）；
// 无 exp 时按 8 小时处理
func tokenExpiry(tok string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(8 * time.Hour)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
		return nil
	}
	c.mu.Lock()
	tok, exp := c.token, c.tokenExp
	c.mu.Unlock()
	if tok == "" || c.now().Add(tokenRefreshMargin).After(exp) {
		var err error
		if tok, err = c.Login(ctx); err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// getJSON 带认证的 GET；401 时清掉令牌重试一次
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	c.ensureHTTP()
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
		if err != nil {
			return err
		}
		if err := c.authorize(ctx, req); err != nil {
			return err
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if c.APIKey != "" || attempt > 0 {
				return ErrUnauthorized
			}
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return fmt.Errorf("portainer GET %s status=%s", path, resp.Status)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("portainer GET %s: %w", path, err)
		}
		return nil
	}
	return ErrUnauthorized
}

// Endpoints 列出环境
func (c *Client) Endpoints(ctx context.Context) ([]Endpoint, error) {
	var out []Endpoint
	if err := c.getJSON(ctx, "/api/endpoints", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DiscoverEndpoint 取第一个环境的 ID
func (c *Client) DiscoverEndpoint(ctx context.Context) (string, error) {
	eps, err := c.Endpoints(ctx)
	if err != nil {
		return "", err
	}
	if len(eps) == 0 {
		return "", ErrNoEndpoint
	}
	id := strconv.Itoa(eps[0].ID)
	logger.Info("endpoint id found, value is: %s", id)
	return id, nil
}

// Containers 列出某环境下全部容器（含已停止）
func (c *Client) Containers(ctx context.Context, endpointID string) ([]Container, error) {
	var out []Container
	path := "/api/endpoints/" + endpointID + "/docker/containers/json?all=1"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
