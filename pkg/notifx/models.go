package notifx

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	CC       []string `json:"cc,omitempty"`
	BCC      []string `json:"bcc,omitempty"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// Template is the source of a named email: subject and text are
// text/templates, HTML is an html/template. Any part may be empty except
// Subject.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Rendered is an executed Template.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}
