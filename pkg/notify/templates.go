package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	templateOTP    = "otp"
	templateDigest = "earnings_digest"
)

type otpData struct {
	Code    string
	Minutes int
}

const otpHTML = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; color: #333;">
    <p>Use this code to sign in to biolink:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>It expires in {{.Minutes}} minutes. If you did not ask for it, you can ignore this email.</p>
</body>
</html>`

const otpText = `Your biolink login code is {{.Code}}.
It expires in {{.Minutes}} minutes. If you did not ask for it, you can ignore this email.
`

const digestHTML = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; color: #333;">
    <p>Hi {{.MerchantName}},</p>
    <p>Your affiliates earned <strong>{{.Total}}</strong> for {{.Period}}.</p>
    <table cellpadding="4">
    {{- range .Days}}
        <tr><td>{{.Label}}</td><td align="right">{{.Amount}}</td></tr>
    {{- end}}
    </table>
    {{- if .TopPerformers}}
    <p>Top performers:</p>
    <ol>
    {{- range .TopPerformers}}
        <li>{{.Name}}: {{.Amount}}</li>
    {{- end}}
    </ol>
    {{- end}}
</body>
</html>`

const digestText = `Hi {{.MerchantName}},

Your affiliates earned {{.Total}} for {{.Period}}.
{{range .Days}}
  {{.Label}}: {{.Amount}}
{{- end}}
{{- if .TopPerformers}}

Top performers:
{{- range $i, $p := .TopPerformers}}
  {{inc $i}}. {{$p.Name}}: {{$p.Amount}}
{{- end}}
{{- end}}
`

var (
	htmlTemplates = map[string]*htmltemplate.Template{
		templateOTP:    htmltemplate.Must(htmltemplate.New(templateOTP).Parse(otpHTML)),
		templateDigest: htmltemplate.Must(htmltemplate.New(templateDigest).Parse(digestHTML)),
	}
	textTemplates = map[string]*texttemplate.Template{
		templateOTP:    texttemplate.Must(texttemplate.New(templateOTP).Parse(otpText)),
		templateDigest: texttemplate.Must(texttemplate.New(templateDigest).Funcs(texttemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).Parse(digestText)),
	}
)

func render(name string, data interface{}) (html, text string, err error) {
	h, ok := htmlTemplates[name]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", name)
	}
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s html: %w", name, err)
	}
	if err := textTemplates[name].Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s text: %w", name, err)
	}
	return hb.String(), tb.String(), nil
}
