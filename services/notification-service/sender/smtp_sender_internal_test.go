package sender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func headerLines(msg []byte) []string {
	head, _, _ := strings.Cut(string(msg), "\r\n\r\n")
	return strings.Split(head, "\r\n")
}

func TestBuildMessage_HeaderValuesCannotAddHeaders(t *testing.T) {
	msg := buildMessage("noreply@example.com\nReply-To: x@evil.io", "buyer@example.com\r\nCc: y@evil.io",
		"Hi\r\nBcc: victim@evil.io", "body")

	lines := headerLines(msg)
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.NotRegexp(t, `^(Bcc|Cc|Reply-To):`, line)
	}
	assert.Equal(t, "Subject: Hi Bcc: victim@evil.io", lines[2])
	assert.Equal(t, "To: buyer@example.com Cc: y@evil.io", lines[1])
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	lines := headerLines(buildMessage("a@example.com", "b@example.com", "Paiement réussi", "x"))

	assert.Equal(t, "Subject: =?utf-8?q?Paiement_r=C3=A9ussi?=", lines[2])
}
