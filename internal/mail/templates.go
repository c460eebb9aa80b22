package mail

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const ResetSubject = "Password Reset Verification Code"

var resetHTML = htmltemplate.Must(htmltemplate.New("reset-html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f5f5f5; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="color: #333333;">TipTop password reset</h2>
    <p>Hello {{.Username}},</p>
    <p>Use the code below to reset your password:</p>
    <p style="font-size: 32px; letter-spacing: 6px; font-weight: bold; text-align: center;">{{.Code}}</p>
    <p>If you did not request a reset you can ignore this email.</p>
  </div>
</body>
</html>
`))

var resetText = texttemplate.Must(texttemplate.New("reset-text").Parse(
	"Hello {{.Username}},\n\nYour verification code is: {{.Code}}\n\nIf you did not request a reset you can ignore this email.\n"))

type resetData struct {
	Username string
	Code     string
}

// RenderResetEmail returns the HTML and plain-text bodies of the reset mail.
func RenderResetEmail(username, code string) (string, string, error) {
	data := resetData{Username: username, Code: code}

	var html, text bytes.Buffer
	if err := resetHTML.Execute(&html, data); err != nil {
		return "", "", err
	}
	if err := resetText.Execute(&text, data); err != nil {
		return "", "", err
	}
	return html.String(), text.String(), nil
}
