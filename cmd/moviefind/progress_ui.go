package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/moviefind/internal/config"
	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/resolve"
)

var _ resolve.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 约束：
// - 所有过程信息写到 stderr，不污染 stdout
// - 事件驱动：resolve 层只发事件，CLI 决定如何展示
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu        sync.Mutex
	startedAt time.Time
	adopted   int
	failed    int
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{w: w, eff: eff}
}

func (p *progressUI) OnStart(id, query string) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = now

	fmt.Fprintf(p.w, "[%s] moviefind find %q\n", now.Format("15:04:05"), truncate(query, 80))
	fmt.Fprintln(p.w, "配置（生效）:")
	if p.eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  engine: %s\n", engineChain(p.eff.Engine, p.eff.Fallbacks))
	fmt.Fprintf(p.w, "  source: %s\n", p.eff.Source)
	fmt.Fprintf(p.w, "  candidate_timeout: %s max_links: %d\n", p.eff.CandidateTimeout, p.eff.MaxLinks)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	fmt.Fprintf(p.w, "  id: %s\n\n", id)
}

func (p *progressUI) OnSearchDone(engine string, candidates int, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		fmt.Fprintf(p.w, "搜索: FAIL %s (%s)\n", truncate(err.Error(), 160), formatShortDuration(dur))
		return
	}
	fmt.Fprintf(p.w, "搜索: engine=%s candidates=%d (%s)\n", engine, candidates, formatShortDuration(dur))
}

func (p *progressUI) OnCandidateDone(idx, total int, att domain.CandidateAttempt, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if att.ErrorCode != "" {
		p.failed++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
			idx, total, truncate(att.URL, 100), att.ErrorCode, truncate(att.ErrorMsg, 120), formatShortDuration(dur),
		)
		return
	}

	status := "OK"
	if att.Stage == domain.StageSubstitute {
		status = "SUB"
	}
	note := ""
	if att.Priority != nil {
		note = fmt.Sprintf(" priority=%d", *att.Priority)
	}
	if att.Adopted {
		p.adopted++
		note += " adopted"
	}
	fmt.Fprintf(p.w, "[%d/%d] %s %s%s (%s)\n",
		idx, total, status, truncate(att.URL, 100), note, formatShortDuration(dur),
	)
}

// summary 在结束时输出一行汇总；startedAt 为零值时（未收到 OnStart）不输出。
func (p *progressUI) summary(res domain.Resolution) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		return
	}
	fmt.Fprintf(p.w, "\n完成: state=%s links=%d adopted=%d fail=%d elapsed=%s\n",
		res.State, len(res.Links), p.adopted, p.failed, formatElapsed(time.Since(p.startedAt)),
	)
}

func engineChain(primary string, fallbacks []string) string {
	parts := []string{primary}
	for _, f := range fallbacks {
		if strings.EqualFold(f, primary) {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " -> ")
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
