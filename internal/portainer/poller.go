package portainer

import (
	"context"
	"fmt"
	"image/color"
	"sort"
	"sync"
	"time"

	"portainer-monitor/internal/console"
	"portainer-monitor/internal/logger"
	"portainer-monitor/internal/store"
	"portainer-monitor/internal/system"
)

// StateStore 上次轮询结果的持久化
type StateStore interface {
	LastStates(ctx context.Context, endpoint string) (map[string]store.ContainerState, error)
	SaveStates(ctx context.Context, endpoint string, states []store.ContainerState, changes []store.Transition) error
}

// Sink 报告输出目标；一次报告作为一个整体提交
type Sink interface {
	Batch(fn func(p console.Producer)) bool
}

// PollerOptions 轮询参数
type PollerOptions struct {
	EndpointID     string
	Interval       time.Duration
	ClearOnRefresh bool
	// Server 报告标题里显示的服务器名
	Server     string
	Foreground color.RGBA
	Background color.RGBA
	// Stats 主机状态来源，默认 system.CollectHostStats
	Stats func() system.HostStats
	Now   func() time.Time
}

// Poller 周期性拉取容器状态，写到控制台
type Poller struct {
	client *Client
	store  StateStore
	sink   Sink
	opts   PollerOptions

	mu       sync.Mutex
	endpoint string
	lastErr  error
	lastPoll time.Time
}

func NewPoller(client *Client, st StateStore, sink Sink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Stats == nil {
		opts.Stats = system.CollectHostStats
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Foreground == (color.RGBA{}) {
		opts.Foreground = console.Green
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = console.Black
	}
	return &Poller{client: client, store: st, sink: sink, opts: opts, endpoint: opts.EndpointID}
}

// Run 立即轮询一次，之后按间隔轮询，直到 ctx 结束
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		_ = p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Endpoint 当前使用的环境 ID（未发现时为空）
func (p *Poller) Endpoint() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoint
}

// LastError 最近一次轮询的错误
func (p *Poller) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) resolveEndpoint(ctx context.Context) (string, error) {
	if ep := p.Endpoint(); ep != "" {
		return ep, nil
	}
	ep, err := p.client.DiscoverEndpoint(ctx)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.endpoint = ep
	p.mu.Unlock()
	return ep, nil
}

// PollOnce 拉取一次并输出报告；错误同时打印成红色行
func (p *Poller) PollOnce(ctx context.Context) error {
	err := p.poll(ctx)
	p.mu.Lock()
	p.lastErr = err
	p.lastPoll = p.opts.Now()
	p.mu.Unlock()
	if err != nil {
		logger.Warn("拉取容器状态失败: %v", err)
		p.sink.Batch(func(out console.Producer) {
			out.SetColors(console.Red, p.opts.Background)
			out.Println("error: " + err.Error())
			out.SetColors(p.opts.Foreground, p.opts.Background)
		})
	}
	return err
}

func (p *Poller) poll(ctx context.Context) error {
	ep, err := p.resolveEndpoint(ctx)
	if err != nil {
		return err
	}
	containers, err := p.client.Containers(ctx, ep)
	if err != nil {
		return err
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name() < containers[j].Name() })

	prev := map[string]store.ContainerState{}
	if p.store != nil {
		if prev, err = p.store.LastStates(ctx, ep); err != nil {
			logger.Warn("读取上次容器状态失败: %v", err)
			prev = map[string]store.ContainerState{}
		}
	}

	now := p.opts.Now()
	states := make([]store.ContainerState, 0, len(containers))
	changes := []store.Transition{}
	changed := map[string]bool{}
	seen := map[string]bool{}
	for _, c := range containers {
		seen[c.ID] = true
		states = append(states, store.ContainerState{
			Endpoint: ep, ID: c.ID, Name: c.Name(), State: c.State, Status: c.Status, UpdatedAt: now.Unix(),
		})
		if old, ok := prev[c.ID]; ok && old.State != c.State {
			changed[c.ID] = true
			changes = append(changes, store.Transition{
				Endpoint: ep, ID: c.ID, Name: c.Name(), From: old.State, To: c.State, At: now.Unix(),
			})
		}
	}
	for id, old := range prev {
		if !seen[id] {
			changes = append(changes, store.Transition{
				Endpoint: ep, ID: id, Name: old.Name, From: old.State, To: "removed", At: now.Unix(),
			})
		}
	}
	if p.store != nil {
		if err := p.store.SaveStates(ctx, ep, states, changes); err != nil {
			logger.Warn("保存容器状态失败: %v", err)
		}
	}

	stats := p.opts.Stats()
	p.sink.Batch(func(out console.Producer) {
		if p.opts.ClearOnRefresh {
			out.Clear()
		}
		out.SetColors(console.Cyan, p.opts.Background)
		out.Println(fmt.Sprintf("%s  %s", p.opts.Server, now.Format("2006-01-02 15:04:05")))
		out.SetColors(p.opts.Foreground, p.opts.Background)
		out.Println(stats.Line())
		for _, c := range containers {
			mark := " "
			if changed[c.ID] {
				mark = "*"
			}
			out.SetColors(StateColor(c.State, p.opts.Foreground), p.opts.Background)
			out.Println(fmt.Sprintf("%s%s  %s  %s", mark, c.Name(), c.State, c.Status))
		}
		out.SetColors(p.opts.Foreground, p.opts.Background)
	})
	return nil
}

// StateColor 按容器状态取颜色，未知状态用 def
func StateColor(state string, def color.RGBA) color.RGBA {
	switch state {
	case "running":
		return console.Green
	case "exited", "dead":
		return console.Red
	case "paused", "restarting", "created":
		return console.Yellow
	default:
		return def
	}
}
