package message

// Attachment describes a stored file. Name, Locator, SizeBytes and MimeHint
// travel together; a partially filled descriptor counts as no attachment.
type Attachment struct {
	Name      string `gorm:"size:200"`
	Locator   string `gorm:"size:500"`
	SizeBytes int64
	MimeHint  string `gorm:"size:100"`
}

func (a Attachment) Complete() bool {
	return a.Name != "" && a.Locator != "" && a.SizeBytes > 0 && a.MimeHint != ""
}
