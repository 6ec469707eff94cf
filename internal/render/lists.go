package render

import (
	"bytes"
	"html/template"

	"github.com/PuerkitoBio/goquery"

	"github.com/uluk20-22520/uluk-site/internal/content"
)

const homeServicesLimit = 4

var listTemplates = template.Must(template.New("lists").Parse(`
{{define "services"}}{{range .}}
<div class="service-card">
  <div class="service-icon">{{.Icon}}</div>
  <h3>{{.Title}}</h3>
  <p>{{.Desc}}</p>
</div>{{end}}
{{end}}
{{define "testimonials"}}{{range .}}
<div class="testimonial-card">
  <div class="testimonial-name">{{.Name}}</div>
  <div class="testimonial-text">{{.Text}}</div>
</div>{{end}}
{{end}}
{{define "faq"}}{{$open := .Open}}{{range $i, $item := .Items}}
<div class="faq-item{{if eq $i $open}} active{{end}}" data-index="{{$i}}">
  <a class="faq-question" id="faq-{{$i}}" href="{{if eq $i $open}}?{{else}}?faq={{$i}}{{end}}#faq-{{$i}}">
    <span>{{$item.Q}}</span>
    <span class="faq-toggle">+</span>
  </a>
  <div class="faq-answer">
    <div class="faq-answer-content">{{$item.A}}</div>
  </div>
</div>{{end}}
{{end}}
{{define "cases"}}{{range .}}
<div class="case-card">
  <h3>{{.Title}}</h3>
  <div class="case-section">
    <div class="case-label">Задача:</div>
    <div class="case-text">{{.Task}}</div>
  </div>
  <div class="case-section">
    <div class="case-label">Решение:</div>
    <div class="case-text">{{.Solution}}</div>
  </div>
  <div class="case-section">
    <div class="case-label">Результат:</div>
    <div class="case-text">{{.Result}}</div>
  </div>
</div>{{end}}
{{end}}
`))

// listRenderer fills one container. present is false when the collection is
// absent from the document, in which case the container keeps its markup.
type listRenderer struct {
	container string
	template  string
	data      func(doc content.Document, acc Accordion) (data any, present bool)
}

var listRenderers = []listRenderer{
	{
		container: "servicesGrid",
		template:  "services",
		data: func(doc content.Document, _ Accordion) (any, bool) {
			return doc.Services[:min(len(doc.Services), homeServicesLimit)], doc.Services != nil
		},
	},
	{
		container: "servicesGridFull",
		template:  "services",
		data: func(doc content.Document, _ Accordion) (any, bool) {
			return doc.Services, doc.Services != nil
		},
	},
	{
		container: "testimonialsGrid",
		template:  "testimonials",
		data: func(doc content.Document, _ Accordion) (any, bool) {
			return doc.Testimonials, doc.Testimonials != nil
		},
	},
	{
		container: "faqList",
		template:  "faq",
		data: func(doc content.Document, acc Accordion) (any, bool) {
			open, ok := acc.Active()
			if !ok {
				open = -1
			}
			return struct {
				Items []content.FAQItem
				Open  int
			}{doc.FAQ, open}, doc.FAQ != nil
		},
	},
	{
		container: "casesList",
		template:  "cases",
		data: func(doc content.Document, _ Accordion) (any, bool) {
			return doc.Cases, doc.Cases != nil
		},
	},
}

func renderLists(page *goquery.Document, doc content.Document, acc Accordion) error {
	for _, lr := range listRenderers {
		container := page.Find("#" + lr.container)
		if container.Length() == 0 {
			continue
		}
		data, present := lr.data(doc, acc)
		if !present {
			continue
		}
		var buf bytes.Buffer
		if err := listTemplates.ExecuteTemplate(&buf, lr.template, data); err != nil {
			return err
		}
		container.SetHtml(buf.String())
	}
	return nil
}
