package domain

import (
	"path/filepath"
	"strings"
)

// Document is an uploaded source file awaiting extraction and indexing.
type Document struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// NewDocument builds a Document whose name is the base filename without
// its extension.
func NewDocument(filename, contentType string, data []byte) *Document {
	return &Document{
		Name:        DocumentNameFromFilename(filename),
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}
}

// DocumentNameFromFilename strips directories and the final extension.
func DocumentNameFromFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one message sent to the generation backend.
type ChatMessage struct {
	Role    ChatRole
	Content string
}
