package notifx

// Names of the built-in marketplace emails.
const (
	TemplateWelcome            = "welcome"
	TemplateRentalConfirmation = "rental_confirmation"
	TemplateRentalReminder     = "rental_reminder"
	TemplateReviewRequest      = "review_request"
	TemplatePasswordReset      = "password_reset"
)

var builtinTemplates = map[string]Template{
	TemplateWelcome: {
		Subject: "Welcome to Rentify{{with .name}}, {{.}}{{end}}!",
		Text: `Hi {{or .name "there"}},

Your account is ready. Browse items near you at {{.AppURL}}/items.
`,
		HTML: `<p>Hi {{or .name "there"}},</p>
<p>Your account is ready. <a href="{{.AppURL}}/items">Browse items near you</a>.</p>`,
	},
	TemplateRentalConfirmation: {
		Subject: "Your rental of {{or .itemTitle \"an item\"}} is confirmed",
		Text: `Hi {{or .name "there"}},

Your rental of {{or .itemTitle "your item"}} is confirmed from {{.startDate}} to {{.endDate}}.
Details: {{.AppURL}}/rentals/{{.rentalId}}
`,
		HTML: `<p>Hi {{or .name "there"}},</p>
<p>Your rental of <strong>{{or .itemTitle "your item"}}</strong> is confirmed from {{.startDate}} to {{.endDate}}.</p>
<p><a href="{{.AppURL}}/rentals/{{.rentalId}}">View rental</a></p>`,
	},
	TemplateRentalReminder: {
		Subject: "Reminder: your rental of {{or .itemTitle \"an item\"}} starts soon",
		Text: `Hi {{or .name "there"}},

Your rental of {{or .itemTitle "your item"}} starts on {{.startDate}}.
Details: {{.AppURL}}/rentals/{{.rentalId}}
`,
		HTML: `<p>Hi {{or .name "there"}},</p>
<p>Your rental of <strong>{{or .itemTitle "your item"}}</strong> starts on {{.startDate}}.</p>
<p><a href="{{.AppURL}}/rentals/{{.rentalId}}">View rental</a></p>`,
	},
	TemplateReviewRequest: {
		Subject: "How was {{or .itemTitle \"your rental\"}}?",
		Text: `Hi {{or .name "there"}},

Your rental has ended. Tell other renters how it went:
{{.AppURL}}/rentals/{{.rentalId}}/review
`,
		HTML: `<p>Hi {{or .name "there"}},</p>
<p>Your rental has ended. <a href="{{.AppURL}}/rentals/{{.rentalId}}/review">Leave a review</a>.</p>`,
	},
	TemplatePasswordReset: {
		Subject: "Reset your Rentify password",
		Text: `Someone asked to reset the password for this account.
Use this link within the hour: {{.AppURL}}/reset-password?token={{.token}}

If it was not you, ignore this email.
`,
		HTML: `<p>Someone asked to reset the password for this account.</p>
<p><a href="{{.AppURL}}/reset-password?token={{.token}}">Reset your password</a> within the hour.</p>
<p>If it was not you, ignore this email.</p>`,
	},
}
