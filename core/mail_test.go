package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(&Config{FrontendBaseURL: "https://swad.test", TestMode: true}, nopLogger{})

	msg := &EmailMessage{
		Subject:      "New password",
		TemplateName: "new_password",
		TemplateData: map[string]string{"Name": "Ana", "Username": "ana", "Password": "s3cr3T!pw"},
	}
	require.NoError(t, msg.Render())
	assert.Contains(t, msg.TextContent, "Your new password is: s3cr3T!pw")
	assert.Contains(t, msg.TextContent, "https://swad.test")
	assert.Contains(t, msg.HTMLContent, "<strong>s3cr3T!pw</strong>")

	missing := &EmailMessage{TemplateName: "lol"}
	assert.Error(t, missing.Render())

	plain := &EmailMessage{BodyStr: "hi"}
	require.NoError(t, plain.Render())
	assert.Equal(t, "hi", plain.TextContent)
	assert.True(t, plain.HasContent())
	assert.False(t, plain.HasRecipients())
}

func TestEmailMessage_Attach(t *testing.T) {
	var msg EmailMessage
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt"))
	require.True(t, msg.HasAttachments())
	at := msg.Attachments[0]
	assert.Equal(t, "hello.txt", at.Filename)
	assert.Equal(t, "aGVsbG8=", at.Content.String())
	assert.True(t, strings.HasPrefix(at.ContentType, "text/plain"))

	require.NoError(t, msg.Attach(bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}), "x.png", "image/png"))
	assert.Equal(t, "image/png", msg.Attachments[1].ContentType)
}
