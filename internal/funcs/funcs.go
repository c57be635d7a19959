package funcs

import (
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// TemplateFuncs is shared by the email templates.
var TemplateFuncs = template.FuncMap{
	"formatRupees": formatRupees,
	"formatDate":   formatDate,
	"upper":        strings.ToUpper,
	"lower":        strings.ToLower,
}

func formatRupees(amount float64) string {
	return printer.Sprintf("₹%.2f", amount)
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}
