package reminder

import (
	"bytes"
	"fmt"
	"html/template"
)

const reminderSubject = "We miss you! Continue your sign language journey"

var reminderHTMLTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hi {{.Name}},</h2>
  <p>It's been a while since your last practice session. Your sign language
  skills grow with regular practice, and even a few minutes a day makes a
  difference.</p>
  <p>Pick up right where you left off: your modules, videos and quizzes are
  waiting for you.</p>
  <p><a href="{{.AppURL}}" style="display:inline-block;padding:10px 20px;background:#4f46e5;color:#fff;text-decoration:none;border-radius:6px;">Continue learning</a></p>
  <p>Happy signing,<br>The SignLingo team</p>
</body>
</html>`))

// renderReminderEmail builds the HTML and plain-text bodies for one user.
func renderReminderEmail(name, appURL string) (html string, text string, err error) {
	var buf bytes.Buffer
	data := struct {
		Name   string
		AppURL string
	}{Name: name, AppURL: appURL}
	if err := reminderHTMLTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render reminder email: %w", err)
	}

	text = fmt.Sprintf(
		"Hi %s,\n\nIt's been a while since your last practice session. "+
			"Your sign language skills grow with regular practice.\n\n"+
			"Continue learning: %s\n\nHappy signing,\nThe SignLingo team\n",
		name, appURL,
	)
	return buf.String(), text, nil
}
