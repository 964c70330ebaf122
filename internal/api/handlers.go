package api

import (
	"image/color"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portainer-monitor/internal/console"
	"portainer-monitor/internal/logger"
	"portainer-monitor/utils"
)

// 单次打印最大长度
const maxPrintBytes = 4096

// LineDTO 一行文本及颜色
type LineDTO struct {
	Text       string `json:"text"`
	Foreground string `json:"fg"`
	Background string `json:"bg"`
}

func NewLineDTO(l console.Line) LineDTO {
	return LineDTO{
		Text:       l.Text,
		Foreground: console.FormatColor(l.Foreground),
		Background: console.FormatColor(l.Background),
	}
}

// ConsoleDTO 控制台快照
type ConsoleDTO struct {
	Lines          []LineDTO `json:"lines"`
	Visible        []string  `json:"visible"`
	Pending        string    `json:"pending"`
	Vertical       int       `json:"vertical"`
	Horizontal     int       `json:"horizontal"`
	VisibleRows    int       `json:"visible_rows"`
	VisibleColumns int       `json:"visible_columns"`
	MaxRows        int       `json:"max_rows"`
	MaxColumns     int       `json:"max_columns"`
	Version        uint64    `json:"version"`
}

func NewConsoleDTO(st console.State) ConsoleDTO {
	lines := make([]LineDTO, 0, len(st.Lines))
	for _, l := range st.Lines {
		lines = append(lines, NewLineDTO(l))
	}
	return ConsoleDTO{
		Lines:          lines,
		Visible:        st.VisibleLines(),
		Pending:        st.Pending,
		Vertical:       st.Vertical,
		Horizontal:     st.Horizontal,
		VisibleRows:    st.VisibleRows,
		VisibleColumns: st.VisibleColumns,
		MaxRows:        st.MaxRows,
		MaxColumns:     st.MaxColumns,
		Version:        st.Version,
	}
}

// PublishLine 把提交的行推送给 websocket 客户端
func (s *Server) PublishLine(l console.Line) {
	s.hub.Broadcast("line", NewLineDTO(l))
}

// PublishClear 通知 websocket 客户端控制台已清空
func (s *Server) PublishClear() {
	s.hub.Broadcast("cleared", nil)
}

// handleLogin 处理登录请求
func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	if req.Username != "" && req.Username != "admin" {
		fail(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	s.authMu.RLock()
	hash := s.config.Auth.PasswordHash
	s.authMu.RUnlock()
	if !utils.CheckPassword(req.Password, hash) {
		fail(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	token, err := utils.GenerateJWT("admin")
	if err != nil {
		fail(c, http.StatusInternalServerError, "生成Token失败")
		return
	}

	success(c, gin.H{
		"token":      token,
		"expires_in": int(utils.TokenTTL.Seconds()),
	})
}

// handleChangePassword 修改 API 密码
func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password" binding:"required,min=4"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	// 校验与写入在同一把锁内，避免两次改密交错
	s.authMu.Lock()
	defer s.authMu.Unlock()
	if !utils.CheckPassword(req.OldPassword, s.config.Auth.PasswordHash) {
		fail(c, http.StatusUnauthorized, "原密码错误")
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		fail(c, http.StatusInternalServerError, "密码加密失败")
		return
	}
	s.config.Auth.PasswordHash = hash
	if err := s.config.Save(); err != nil {
		logger.Error("保存配置失败: %v", err)
		fail(c, http.StatusInternalServerError, "保存配置失败")
		return
	}
	success(c, nil)
}

// handleConsoleState 当前快照（控制循环最近一次发布的）
func (s *Server) handleConsoleState(c *gin.Context) {
	st, ok := s.state.Load()
	if !ok {
		fail(c, http.StatusServiceUnavailable, "控制台尚未就绪")
		return
	}
	success(c, NewConsoleDTO(st))
}

func (s *Server) handleConsoleScroll(c *gin.Context) {
	g, ok := console.ParseGesture(c.Param("direction"))
	if !ok {
		fail(c, http.StatusBadRequest, "方向只能是 up/down/left/right")
		return
	}
	if !s.queue.Scroll(g) {
		fail(c, http.StatusServiceUnavailable, "控制台忙")
		return
	}
	success(c, gin.H{"queued": g.String()})
}

func (s *Server) handleConsoleClear(c *gin.Context) {
	if !s.queue.Do(func(w *console.Window) { w.Clear() }) {
		fail(c, http.StatusServiceUnavailable, "控制台忙")
		return
	}
	success(c, nil)
}

// handleConsolePrint 追加文本；fg/bg 只对这次输出生效
func (s *Server) handleConsolePrint(c *gin.Context) {
	var req struct {
		Text    string `json:"text"`
		Newline *bool  `json:"newline"`
		Fg      string `json:"fg"`
		Bg      string `json:"bg"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	if len(req.Text) > maxPrintBytes {
		fail(c, http.StatusBadRequest, "文本过长")
		return
	}
	var fg, bg *color.RGBA
	for _, p := range []struct {
		in  string
		out **color.RGBA
	}{{req.Fg, &fg}, {req.Bg, &bg}} {
		if strings.TrimSpace(p.in) == "" {
			continue
		}
		v, err := console.ParseColor(p.in)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		*p.out = &v
	}
	newline := req.Newline == nil || *req.Newline

	ok := s.queue.Do(func(w *console.Window) {
		oldFg, oldBg := w.Colors()
		if fg != nil || bg != nil {
			nf, nb := oldFg, oldBg
			if fg != nil {
				nf = *fg
			}
			if bg != nil {
				nb = *bg
			}
			w.SetColors(nf, nb)
			defer w.SetColors(oldFg, oldBg)
		}
		if newline {
			w.Println(req.Text)
		} else {
			w.Print(req.Text)
		}
	})
	if !ok {
		fail(c, http.StatusServiceUnavailable, "控制台忙")
		return
	}
	success(c, nil)
}

// handleSystemInfo 本机状态
func (s *Server) handleSystemInfo(c *gin.Context) {
	success(c, s.stats())
}

func (s *Server) handlePortainerStatus(c *gin.Context) {
	data := gin.H{
		"server":   s.config.Portainer.BaseURL(),
		"endpoint": s.config.Portainer.EndpointID,
	}
	if s.poller != nil {
		data["endpoint"] = s.poller.Endpoint()
		if err := s.poller.LastError(); err != nil {
			data["last_error"] = err.Error()
		}
	}
	success(c, data)
}

// handleTransitions 最近的容器状态变化
func (s *Server) handleTransitions(c *gin.Context) {
	if s.transitions == nil {
		success(c, []any{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := s.transitions.RecentTransitions(c.Request.Context(), limit)
	if err != nil {
		logger.Error("查询状态变化失败: %v", err)
		fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	success(c, list)
}
