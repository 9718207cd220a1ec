package service

import (
	"html"
	"strings"

	"catalog_sync_v1/pkg/catalog"
)

// 规格表包裹标记，重复同步时据此替换旧表
const (
	SpecTableStart = "<!-- catalog-spec:start -->"
	SpecTableEnd   = "<!-- catalog-spec:end -->"
)

type specRow struct {
	label string
	value catalog.Text
}

func specRows(p *catalog.Product) []specRow {
	return []specRow{
		{"Origin", p.Origin},
		{"Manufacturing", p.Manufacturing},
		{"Pile", p.Pile},
		{"Warp", p.Warp},
		{"Condition", p.Condition},
		{"Age", p.Age},
		{"Shape", p.Shape},
		{"SQM", p.SQM},
		{"Length", p.Length},
		{"Width", p.Width},
		{"Design", p.Design},
		{"Color", p.Color},
		{"Colors String", p.ColorsString},
		{"Knot Density", p.KnotDensity},
		{"Points", p.Points},
		{"Backing", p.Backing},
		{"KG", p.KG},
		{"Knot Density (CM)", p.KnotDensityCM},
		{"Color Code", p.ColorCode},
	}
}

// BuildSpecTable 生成规格表 HTML，空字段不输出
// category 非空时追加 Category 行
func BuildSpecTable(p *catalog.Product, category *catalog.Category) string {
	rows := specRows(p)
	if category != nil && !category.Name.Empty() {
		rows = append(rows, specRow{"Category", category.Name})
	}

	var b strings.Builder
	b.WriteString(SpecTableStart)
	b.WriteString(`<br /><table style="width: 550px; margin-top: 20px;"><tbody>`)
	for _, row := range rows {
		if row.value.Empty() {
			continue
		}
		b.WriteString("<tr><td>")
		b.WriteString(html.EscapeString(row.label))
		b.WriteString("</td><td>")
		b.WriteString(html.EscapeString(row.value.String()))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table>")
	b.WriteString(SpecTableEnd)
	return b.String()
}

// StripSpecTable 去掉所有已生成的规格表
func StripSpecTable(desc string) string {
	for {
		start := strings.Index(desc, SpecTableStart)
		if start < 0 {
			break
		}
		rel := strings.Index(desc[start:], SpecTableEnd)
		if rel < 0 {
			// 结束标记丢失，截断到末尾
			desc = desc[:start]
			break
		}
		desc = desc[:start] + desc[start+rel+len(SpecTableEnd):]
	}
	return strings.TrimRight(desc, " \t\r\n")
}

// ComposeDescription 描述正文 + 新规格表
func ComposeDescription(body, table string) string {
	return StripSpecTable(body) + table
}
