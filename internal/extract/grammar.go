package extract

// Field 是可抽取的元数据字段。
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCountry     Field = "country"
	FieldYear        Field = "year"
	FieldRating      Field = "rating"
)

// Anchor 是页面文本中的固定锚点。
type Anchor string

const (
	AnchorIntro    Anchor = "intro"
	AnchorTitle    Anchor = "title"
	AnchorCountry  Anchor = "country"
	AnchorDirector Anchor = "director"
	AnchorYear     Anchor = "year"
	AnchorActors   Anchor = "actors"

	// anchorStart 表示文本开头（总是存在）。
	anchorStart Anchor = "^"
)

// Markers 把锚点映射到候选标记串；同一锚点按顺序尝试，第一个出现的标记生效
// （注意：是"列表顺序优先"，不是"位置靠前优先"）。
var Markers = map[Anchor][]string{
	AnchorIntro:    {"это"},
	AnchorTitle:    {"Название:", "Название (Eng):"},
	AnchorCountry:  {"Страна:"},
	AnchorDirector: {"Режиссер:"},
	AnchorYear:     {"Год выхода:"},
	AnchorActors:   {"Актеры:"},
}

// genericTitleWord 是部分页面标题区域开头的通用前缀词；无显式标题标记时在此截断。
const genericTitleWord = "Фильм"

// Bound 是字段边界：锚点位置 + 可选跳过标记本身 + 字节偏移。
type Bound struct {
	Anchor Anchor
	After  bool // true：从标记末尾开始
	Offset int
}

// Rule 描述一个字段的抽取方式。
//
// 求值规则：
//   - 同一 Field 的多条 Rule 按顺序尝试；第一条满足 Requires/Forbids 且 From 可定位的 Rule 生效，
//     其结果（可能为缺失）即为最终结果，不再回退到后续 Rule
//   - To 中第一个可定位的边界生效；都不可定位时字段缺失
type Rule struct {
	Field    Field
	From     Bound
	To       []Bound
	Requires []Anchor
	Forbids  []Anchor
	Post     func(s string) string
}

// Grammar 是默认的抽取语法（字段顺序即求值顺序）。
var Grammar = []Rule{
	{
		Field: FieldDescription,
		From:  Bound{Anchor: AnchorIntro},
		To:    []Bound{{Anchor: AnchorTitle}, {Anchor: AnchorCountry}},
	},
	{
		Field: FieldTitle,
		From:  Bound{Anchor: AnchorTitle, After: true},
		To:    []Bound{{Anchor: AnchorYear}, {Anchor: AnchorCountry}},
	},
	{
		Field:    FieldTitle,
		From:     Bound{Anchor: anchorStart},
		To:       []Bound{{Anchor: AnchorIntro}},
		Requires: []Anchor{AnchorIntro},
		Forbids:  []Anchor{AnchorTitle},
		Post:     trimGenericTitle,
	},
	{
		Field: FieldCountry,
		From:  Bound{Anchor: AnchorCountry, After: true},
		To:    []Bound{{Anchor: AnchorDirector}},
	},
	{
		Field: FieldYear,
		From:  Bound{Anchor: AnchorYear, After: true},
		To:    []Bound{{Anchor: AnchorCountry}},
	},
	{
		Field: FieldRating,
		From:  Bound{Anchor: AnchorActors, Offset: -3},
		To:    []Bound{{Anchor: AnchorActors}},
	},
}
