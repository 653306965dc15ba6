// Package present 把解析结果渲染为 Telegram HTML 风格的回复文本。
package present

import (
	"fmt"
	"html"
	"math/rand"
	"strconv"
	"strings"

	"github.com/John-Robertt/moviefind/internal/domain"
)

// HelpText 是 /help 的回复。
const HelpText = "Доступные команды:\n\n" +
	"/start - Начать работу с ботом.\n" +
	"/help - Показать это сообщение.\n\n" +
	"Чтобы найти фильм, просто напишите его название в чат. Бот предложит подходящие варианты!"

const (
	nothingFound = "Без фильмов на сегодня \n <b>Ничего не найдено</b>"
	linksHeader  = "\n\nВозможно вы искали что-то из этого \n"
)

// emojiPool 是链接列表的装饰表情（只读；每次回复打乱一份副本）。
var emojiPool = [...]string{"😈", "😎", "😋", "🙃", "😇"}

// StartText 是 /start 的回复。
func StartText(name string) string {
	return fmt.Sprintf("Привет, %s! \n\n"+
		"Я бот, который поможет тебе найти фильмы по запросу.\n"+
		"Настоятельная просьба не искать запрещённый в рф контент,"+
		" так как не гарантируется, что в ответ вы получите хоть что-то.\n"+
		"Напиши /help для вывода списка доступных команд.", html.EscapeString(name))
}

// Meta 按固定顺序渲染存在的字段，每块后跟一个空行。
func Meta(m domain.MovieMeta) string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString("<b>" + html.EscapeString(m.Title) + "</b>\n\n")
	}
	if m.Description != "" {
		b.WriteString("<u><i>Описание:</i></u> " + html.EscapeString(m.Description))
		if m.Spoiler != "" {
			b.WriteString("<tg-spoiler>" + html.EscapeString(m.Spoiler) + "</tg-spoiler>")
		}
		b.WriteString("\n\n")
	}
	if m.Country != "" {
		b.WriteString("<i>Страна:</i> " + html.EscapeString(m.Country) + "\n\n")
	}
	if m.Year != "" {
		b.WriteString("<i>Год выпуска:</i> " + html.EscapeString(m.Year) + "\n\n")
	}
	if m.HasRating() {
		b.WriteString("<i>Рейтинг IMDB:</i>\n " + formatRating(m.Rating) + "\n\n")
	}
	return b.String()
}

// Reply 渲染一次查询的完整回复。rnd 决定装饰表情的顺序（nil 时不打乱）。
func Reply(query string, res domain.Resolution, rnd *rand.Rand) string {
	if len(res.Links) == 0 {
		return nothingFound
	}

	var meta domain.MovieMeta
	if res.Meta != nil {
		meta = *res.Meta
	}
	label := meta.Title
	if label == "" {
		label = query
	}

	emojis := emojiPool
	if rnd != nil {
		rnd.Shuffle(len(emojis), func(i, j int) { emojis[i], emojis[j] = emojis[j], emojis[i] })
	}

	var b strings.Builder
	b.WriteString(Meta(meta))
	b.WriteString(linksHeader)
	for i, u := range res.Links {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. <a href=\"%s\">%s</a> %s", i+1, html.EscapeString(u), html.EscapeString(label), emojis[i%len(emojis)])
	}
	return b.String()
}

// formatRating 与常见评分写法一致：整数也保留一位小数（8 -> "8.0"）。
func formatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
