package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acanas/swad-core-sub004/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{AppName: "SWAD", DefaultFromEmail: mail.Address{Name: "SWAD", Address: "noreply@swad.test"}}
}

func TestServiceMock_SendMessages(t *testing.T) {
	svc := NewServiceMock(testConfig(), nopLogger{})
	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "ana@swad.test"}}, Subject: "hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@swad.test"}}, Subject: "empty"},
	)
	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_format(t *testing.T) {
	svc := NewConsoleService(testConfig(), nopLogger{})
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ana", Address: "ana@swad.test"}},
		Subject:     "Attendance",
		TextContent: "see you",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b"), "list.csv", "text/csv"))

	out := svc.format(msg)
	assert.Contains(t, out, "Subject: [SWAD] Attendance\r\n")
	assert.Contains(t, out, `To: "Ana" <ana@swad.test>`)
	assert.Contains(t, out, "multipart/mixed")
	assert.Contains(t, out, "filename=list.csv")
	assert.Contains(t, out, "see you")
	assert.NotContains(t, out, "CC:")
}
