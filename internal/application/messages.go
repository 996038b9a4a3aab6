package application

import (
	"fmt"
	"time"
)

func verificationMessage(urlBase, token string, ttl time.Duration) (subject, html, text string) {
	link := fmt.Sprintf("%s?token=%s", urlBase, token)
	hours := int(ttl.Hours())
	subject = "Verify your email address"
	html = fmt.Sprintf(
		`<p>Welcome! Please confirm your email address by clicking the link below.</p>`+
			`<p><a href="%s">Verify email</a></p>`+
			`<p>This link expires in %d hours. If you did not sign up, you can ignore this message.</p>`,
		link, hours,
	)
	text = fmt.Sprintf(
		"Welcome! Please confirm your email address:\n\n%s\n\nThis link expires in %d hours. If you did not sign up, you can ignore this message.\n",
		link, hours,
	)
	return subject, html, text
}

func welcomeMessage(displayName string) (subject, html, text string) {
	greeting := "Welcome aboard"
	if displayName != "" {
		greeting = "Welcome aboard, " + displayName
	}
	subject = "Your email is verified"
	html = fmt.Sprintf(`<p>%s! Your email address is verified and your account is ready to use.</p>`, greeting)
	text = fmt.Sprintf("%s! Your email address is verified and your account is ready to use.\n", greeting)
	return subject, html, text
}
