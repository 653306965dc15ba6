package extract

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/moviefind/internal/domain"
)

// Span 是某个字段在原文中捕获到的区间（字节偏移）与处理后的文本。
type Span struct {
	Start int
	End   int
	Text  string
}

type position struct {
	start int // 标记起点
	end   int // 标记终点（start + len(marker)）
}

// Extract 把一段页面文本解析为 MovieMeta。
// 该函数是全函数：任何标记缺失都只会让对应字段缺失，不会返回错误。
func Extract(text string) domain.MovieMeta {
	return ExtractWith(Grammar, text)
}

// ExtractWith 使用给定语法解析文本。
func ExtractWith(grammar []Rule, text string) domain.MovieMeta {
	spans := SpansWith(grammar, text)

	var rating float64
	if s, ok := spans[FieldRating]; ok {
		rating = parseRating(s.Text)
	}
	return domain.NewMovieMeta(
		spans[FieldTitle].Text,
		spans[FieldDescription].Text,
		spans[FieldCountry].Text,
		spans[FieldYear].Text,
		rating,
	)
}

// Spans 返回默认语法下每个存在字段的捕获区间（缺失字段不出现在 map 中）。
func Spans(text string) map[Field]Span {
	return SpansWith(Grammar, text)
}

// SpansWith 按语法求值，返回每个存在字段的捕获区间。
func SpansWith(grammar []Rule, text string) map[Field]Span {
	pos := locate(text)
	out := make(map[Field]Span, len(grammar))
	decided := make(map[Field]bool, len(grammar))

	for _, r := range grammar {
		if decided[r.Field] {
			continue
		}
		if !satisfied(pos, r) {
			continue
		}
		start, ok := resolve(pos, r.From, len(text))
		if !ok {
			continue
		}
		decided[r.Field] = true

		end, ok := firstBound(pos, r.To, len(text))
		if !ok || end <= start {
			continue
		}
		s := strings.TrimSpace(text[start:end])
		if r.Post != nil {
			s = strings.TrimSpace(r.Post(s))
		}
		if s == "" {
			continue
		}
		out[r.Field] = Span{Start: start, End: end, Text: s}
	}
	return out
}

func locate(text string) map[Anchor]position {
	pos := make(map[Anchor]position, len(Markers)+1)
	pos[anchorStart] = position{}
	for a, markers := range Markers {
		for _, m := range markers {
			if i := strings.Index(text, m); i >= 0 {
				pos[a] = position{start: i, end: i + len(m)}
				break
			}
		}
	}
	return pos
}

func satisfied(pos map[Anchor]position, r Rule) bool {
	for _, a := range r.Requires {
		if _, ok := pos[a]; !ok {
			return false
		}
	}
	for _, a := range r.Forbids {
		if _, ok := pos[a]; ok {
			return false
		}
	}
	return true
}

func resolve(pos map[Anchor]position, b Bound, n int) (int, bool) {
	p, ok := pos[b.Anchor]
	if !ok {
		return 0, false
	}
	i := p.start
	if b.After {
		i = p.end
	}
	i += b.Offset
	if i < 0 || i > n {
		return 0, false
	}
	return i, true
}

func firstBound(pos map[Anchor]position, bounds []Bound, n int) (int, bool) {
	for _, b := range bounds {
		if i, ok := resolve(pos, b, n); ok {
			return i, true
		}
	}
	return 0, false
}

// trimGenericTitle 处理"无显式标题标记"时的标题：去掉末尾一个字符（通常是破折号），
// 并在通用前缀词处截断。
func trimGenericTitle(s string) string {
	if s != "" {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	if i := strings.Index(s, genericTitleWord); i >= 0 {
		s = s[:i]
	}
	return s
}

func parseRating(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
