package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func Test_sendgridService_prepare(t *testing.T) {
	msg := core.EmailMessage{
		To:           []mail.Address{{Name: "Abhishek", Address: "abhishek.student@school.com"}},
		Cc:           []mail.Address{{Address: "hod.hod@school.com"}},
		Subject:      "Leave request approved",
		TemplateName: "leave_decision",
		TextContent:  "approved",
	}

	t.Run("live", func(t *testing.T) {
		svc := sendgridService{subjPrefix: "[Shule] ", env: "PROD"}
		m := svc.prepare(msg)

		if assert.Len(t, m.Personalizations, 1) {
			p := m.Personalizations[0]
			assert.Equal(t, "[Shule] Leave request approved", p.Subject)
			if assert.Len(t, p.To, 1) {
				assert.Equal(t, "Abhishek", p.To[0].Name)
				assert.Equal(t, "abhishek.student@school.com", p.To[0].Address)
			}
			assert.Len(t, p.CC, 1)
			assert.Empty(t, p.BCC)
		}
		if assert.Len(t, m.Content, 1) {
			assert.Equal(t, "text/plain", m.Content[0].Type)
			assert.Equal(t, "approved", m.Content[0].Value)
		}
		assert.Equal(t, []string{"leave_decision"}, m.Categories)
		assert.Equal(t, "PROD", m.CustomArgs["env"])
		assert.Nil(t, m.MailSettings)
	})

	t.Run("sandbox", func(t *testing.T) {
		svc := sendgridService{sandbox: true}
		m := svc.prepare(core.EmailMessage{To: msg.To, BodyStr: "x", TextContent: "x"})

		assert.Empty(t, m.Categories)
		assert.Empty(t, m.CustomArgs)
		if assert.NotNil(t, m.MailSettings) && assert.NotNil(t, m.MailSettings.SandboxMode) {
			assert.True(t, *m.MailSettings.SandboxMode.Enable)
		}
	})
}
