package web

import (
	"context"
	"encoding/base64"
	"html/template"

	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Page copy.
const (
	PageTitle      = "Open Data Analysis Platform"
	PageSubtitle   = "Upload any dataset to explore insights and visualizations!"
	MsgNoUpload    = "Please upload a dataset to proceed."
	UploadLabel    = "Upload your dataset (CSV format)"
	FilterLabel    = "Filter by sentiment (optional):"
	QuestionLabel  = "Ask a question about the dataset:"
	AskButton      = "Generate Insights"
	AskingLabel    = "Generating insights..."
	InsightHeading = "AI-Powered Insights"
)

type panelView struct {
	pipeline.Panel
	ChartURI template.URL
}

type insightView struct {
	Question     string
	Answer       template.HTML
	ErrorMessage string
	Model        string
	RequestID    string
}

type pageView struct {
	Title, Subtitle string
	Labels          map[string]string

	FileName string
	LoadErr  string
	Info     string

	Page   *pipeline.Page
	Panels []panelView

	Question   string
	Requesting bool
	Insight    *insightView
}

var labels = map[string]string{
	"upload":   UploadLabel,
	"filter":   FilterLabel,
	"question": QuestionLabel,
	"ask":      AskButton,
	"asking":   AskingLabel,
	"insight":  InsightHeading,
}

// view renders st into the template model. It reads st only.
func view(ctx context.Context, st State, opt pipeline.Options) pageView {
	v := pageView{
		Title:      PageTitle,
		Subtitle:   PageSubtitle,
		Labels:     labels,
		FileName:   st.FileName,
		LoadErr:    st.LoadErr,
		Question:   st.Question,
		Requesting: st.Ask == AskRequesting,
	}
	if st.Data == nil {
		if st.LoadErr == "" {
			v.Info = MsgNoUpload
		}
		return v
	}
	v.Page = pipeline.Render(ctx, st.Data, st.Selection, opt)
	v.Panels = make([]panelView, len(v.Page.Panels))
	for i, p := range v.Page.Panels {
		v.Panels[i] = panelView{Panel: p}
		if p.HasChart() {
			v.Panels[i].ChartURI = pngDataURI(p.Chart)
		}
	}
	if ex := st.Exchange; ex != nil {
		v.Insight = &insightView{
			Question:     ex.Question,
			Answer:       renderMarkdown(ex.Answer),
			ErrorMessage: ex.ErrorMessage(),
			Model:        ex.Model,
			RequestID:    ex.RequestID,
		}
	}
	return v
}

func pngDataURI(b []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
}

// renderMarkdown converts a model answer to HTML. Raw HTML in the answer is
// dropped and only safe link schemes are kept.
func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}
