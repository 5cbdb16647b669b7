package web

import (
	"fmt"
	"html/template"
	"time"
)

var templateFuncs = template.FuncMap{
	"width": func(p float64) template.CSS {
		return template.CSS(fmt.Sprintf("width: %.1f%%", p))
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
}
