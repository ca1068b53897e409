package email

import "context"

// MemoryEmail is an email as recorded by the MemorySender.
type MemoryEmail struct {
	From      Address
	Recipient Address
	Message   Message
}

// MemorySender is a Sender that keeps all emails in memory. Only meant
// for use in tests.
type MemorySender struct {
	Emails []MemoryEmail
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, recipient Address, msg Message) error {
	s.Emails = append(s.Emails, MemoryEmail{
		From:      from,
		Recipient: recipient,
		Message:   msg,
	})
	return nil
}
