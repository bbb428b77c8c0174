package mailbox

import (
	"fmt"
	"strings"

	"healthcrm/internal/models"
)

const dateLayout = "Mon, Jan 2, 2006 at 3:04 PM"

// Reply builds the compose payload for answering e.
func Reply(e models.Email) models.ComposePayload {
	return models.ComposePayload{
		To:              replyAddress(e),
		Subject:         prefixSubject("Re:", e.Subject),
		Message:         quoteBody(e),
		IsReply:         true,
		OriginalEmailID: e.ID,
	}
}

// Forward builds the compose payload for forwarding e. The recipient is left
// for the user to fill in.
func Forward(e models.Email) models.ComposePayload {
	return models.ComposePayload{
		Subject:         prefixSubject("Fwd:", e.Subject),
		Message:         forwardBody(e),
		IsForward:       true,
		OriginalEmailID: e.ID,
	}
}

func replyAddress(e models.Email) string {
	if e.SenderEmail != "" {
		return e.SenderEmail
	}
	return e.Sender
}

// prefixSubject adds prefix once; subjects already carrying it are kept.
func prefixSubject(prefix, subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	if subject == "" {
		return prefix
	}
	return prefix + " " + subject
}

func quoteBody(e models.Email) string {
	var b strings.Builder
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "On %s, %s wrote:\n", e.ReceivedAt.Format(dateLayout), senderLine(e))
	for _, line := range strings.Split(e.Body, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func forwardBody(e models.Email) string {
	var b strings.Builder
	b.WriteString("\n\n---------- Forwarded message ----------\n")
	fmt.Fprintf(&b, "From: %s\n", senderLine(e))
	fmt.Fprintf(&b, "Date: %s\n", e.ReceivedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	fmt.Fprintf(&b, "To: %s\n\n", e.Recipient)
	b.WriteString(e.Body)
	return b.String()
}

func senderLine(e models.Email) string {
	switch {
	case e.Sender != "" && e.SenderEmail != "":
		return fmt.Sprintf("%s <%s>", e.Sender, e.SenderEmail)
	case e.Sender != "":
		return e.Sender
	default:
		return e.SenderEmail
	}
}
