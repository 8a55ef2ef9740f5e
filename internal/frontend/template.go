package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

var funcs = template.FuncMap{
	"signed": func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) },
	"isApprove": func(r *analysis.DisplayResult) bool {
		return r != nil && r.Outcome == model.OutcomeApprove
	},
}

// FormField is one input of the applicant form
type FormField struct {
	Name    string
	Label   string
	Select  bool
	Options []string
	Value   string
	Min     string
	Max     string
	Step    string
	Error   string
}

// PageData is passed to every page template
type PageData struct {
	Nonce     string
	Title     string
	Fields    []FormField
	Result    *analysis.DisplayResult
	Message   string
	RequestID string
}

// BuildForm lays out the schema as form fields. values holds previously
// submitted strings keyed by feature name; fieldErrs holds per-field messages.
func BuildForm(s *schema.Schema, values, fieldErrs map[string]string) []FormField {
	fields := make([]FormField, 0, s.Len())
	for _, e := range s.Features {
		f := FormField{
			Name:  e.Name,
			Label: e.DisplayLabel(),
			Error: fieldErrs[e.Name],
		}

		if e.Kind == schema.KindCategorical {
			f.Select = true
			f.Options = e.Labels()
			if len(f.Options) > 0 {
				f.Value = f.Options[0]
			}
		} else {
			if lower, ok := e.LowerBound(); ok {
				f.Min = formatNumber(lower)
				f.Value = f.Min
			}
			if e.Max != nil {
				f.Max = formatNumber(*e.Max)
			}
			f.Step = "any"
			if e.Integer {
				f.Step = "1"
			}
		}

		if v, ok := values[e.Name]; ok {
			f.Value = v
		}
		fields = append(fields, f)
	}
	return fields
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Render executes the named template into a buffer before writing,
// so a failing template never leaves a half-written page.
func Render(c *gin.Context, tmpl *template.Template, name string, status int, data PageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
