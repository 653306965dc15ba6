package domain

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// PriorityMax 是所有字段齐全且评分有效时的完整度。
	PriorityMax = 6
	// PriorityFloor 是聚合器的初始最大值，也是兜底占位元数据的 priority。
	PriorityFloor = -5
	// MinRating 以下的评分视为缺失。
	MinRating = 1.0
)

// MovieMeta 是从页面文本中抽取出的结构化元数据。
//
// 约束：
// - 字符串字段 "" 表示缺失；Rating 为 0 表示缺失
// - Priority 只在 NewMovieMeta 中计算一次；之后改写 Title 不会重新计算
type MovieMeta struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Country     string  `json:"country,omitempty"`
	Year        string  `json:"year,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Priority    int     `json:"priority"`

	// Spoiler 是描述之后折叠显示的补充文本（仅脚本化的替代元数据使用）。
	Spoiler string `json:"spoiler,omitempty"`
}

// NewMovieMeta 构造元数据并计算完整度：
//
//	priority = 6 - [title 缺失] - 2*[description 缺失] - [country 缺失] - [year 缺失] - [rating 缺失或 < 1]
//
// description 存在时会按句号重排为首字母大写的句子序列。
func NewMovieMeta(title, description, country, year string, rating float64) MovieMeta {
	m := MovieMeta{
		Title:    title,
		Country:  country,
		Year:     year,
		Rating:   rating,
		Priority: PriorityMax,
	}
	if description != "" {
		m.Description = ReflowDescription(description)
	}

	if m.Title == "" {
		m.Priority--
	}
	if m.Description == "" {
		m.Priority -= 2
	}
	if m.Country == "" {
		m.Priority--
	}
	if m.Year == "" {
		m.Priority--
	}
	// NaN 与任何值比较都为 false，用取反的写法把它一并归为缺失
	if !(m.Rating >= MinRating) || math.IsInf(m.Rating, 0) {
		m.Rating = 0
		m.Priority--
	}
	return m
}

// HasRating 报告评分是否有效。
func (m MovieMeta) HasRating() bool { return m.Rating >= MinRating && !math.IsInf(m.Rating, 0) }

// ReflowDescription 在每个 '.' 之后切分，逐句 trim + Capitalize，
// 每句前补一个空格后按原顺序拼接。trim 后为空的片段被丢弃。
func ReflowDescription(s string) string {
	var b strings.Builder
	for _, seg := range splitAfterPeriod(s) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(Capitalize(seg))
	}
	return b.String()
}

func splitAfterPeriod(s string) []string {
	out := make([]string, 0, strings.Count(s, ".")+1)
	for {
		i := strings.IndexByte(s, '.')
		if i < 0 {
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return append(out, s)
}

// Capitalize 把首个 rune 转为大写，其余 rune 转为小写。
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
