package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"tenant-inbox/internal/domain/message"
	"tenant-inbox/internal/domain/user"
	"tenant-inbox/internal/proxy"
	"tenant-inbox/internal/storage"
	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/google/uuid"
)

const MaxAttachmentSize int64 = 10 * 1024 * 1024

// allowedAttachmentTypes is the extension allow-list with the mime hint
// stored for each.
var allowedAttachmentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"txt":  "text/plain",
	"gif":  "image/gif",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
}

const tempScope = "temp"

// FileUpload is an attachment as received from the client. Size is the
// size the client declared; the reader is capped regardless.
type FileUpload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

type UploadResult struct {
	Locator  string
	Name     string
	Size     int64
	MimeHint string
}

type DownloadResult struct {
	Name     string
	MimeHint string
	Data     []byte
}

type AttachmentService struct {
	store      storage.BlobStore
	access     *proxy.AccessControl
	identities IdentityResolver
	maxSize    int64
}

func NewAttachmentService(store storage.BlobStore, access *proxy.AccessControl, identities IdentityResolver) *AttachmentService {
	return &AttachmentService{store: store, access: access, identities: identities, maxSize: MaxAttachmentSize}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" || name == "/" {
		return ""
	}
	return name
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// MimeHintFor returns the stored content type for an allowed extension.
func MimeHintFor(name string) (string, bool) {
	hint, ok := allowedAttachmentTypes[extensionOf(name)]
	return hint, ok
}

func (s *AttachmentService) read(upload FileUpload) (string, string, []byte, error) {
	name := SanitizeFileName(upload.Name)
	if name == "" || upload.Reader == nil {
		return "", "", nil, fmt.Errorf("%w: file is required", inbox_errors.ErrInvalidInput)
	}
	hint, ok := MimeHintFor(name)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: file type not allowed", inbox_errors.ErrInvalidInput)
	}
	if upload.Size > s.maxSize {
		return "", "", nil, inbox_errors.ErrTooLarge
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(upload.Reader, s.maxSize+1))
	if err != nil {
		return "", "", nil, fmt.Errorf("read upload: %w", err)
	}
	if n > s.maxSize {
		return "", "", nil, inbox_errors.ErrTooLarge
	}
	if n == 0 {
		return "", "", nil, fmt.Errorf("%w: file is empty", inbox_errors.ErrInvalidInput)
	}
	return name, hint, buf.Bytes(), nil
}

func newLocator(scope, name string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/attachment_%s.%s", scope, hex, extensionOf(name))
}

// Store validates and persists an upload under scope. Validation failures
// are ErrInvalidInput or ErrTooLarge.
func (s *AttachmentService) Store(ctx context.Context, scope string, upload FileUpload) (message.Attachment, error) {
	name, hint, data, err := s.read(upload)
	if err != nil {
		return message.Attachment{}, err
	}
	locator := newLocator(scope, name)
	if err := s.store.Put(ctx, locator, data, hint); err != nil {
		return message.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}
	return message.Attachment{
		Name:      name,
		Locator:   locator,
		SizeBytes: int64(len(data)),
		MimeHint:  hint,
	}, nil
}

// Discard removes a stored attachment whose message was never committed.
func (s *AttachmentService) Discard(ctx context.Context, a message.Attachment) error {
	return s.store.Delete(ctx, a.Locator)
}

func conversationScope(id uuid.UUID) string {
	return id.String()
}

func tempScopeFor(callerID uuid.UUID) string {
	return tempScope + "/" + callerID.String()
}

// Upload stores a standalone attachment. With a conversation the caller must
// be a participant; without one the file lands in the caller's temp scope.
func (s *AttachmentService) Upload(ctx context.Context, callerID uuid.UUID, upload FileUpload, conversationID *uuid.UUID) (UploadResult, error) {
	caller, err := s.identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return UploadResult{}, err
	}

	scope := tempScopeFor(caller.ID)
	if conversationID != nil {
		conv, err := s.access.CanViewConversation(ctx, caller, *conversationID)
		if err != nil {
			return UploadResult{}, err
		}
		scope = conversationScope(conv.ID)
	}

	a, err := s.Store(ctx, scope, upload)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Locator: a.Locator, Name: a.Name, Size: a.SizeBytes, MimeHint: a.MimeHint}, nil
}

// Download returns the bytes behind a locator the caller may read.
func (s *AttachmentService) Download(ctx context.Context, callerID uuid.UUID, locator string) (DownloadResult, error) {
	locator = strings.TrimSpace(locator)
	if strings.Contains(locator, "..") || strings.HasPrefix(locator, "/") {
		return DownloadResult{}, fmt.Errorf("%w: invalid file path", inbox_errors.ErrInvalidInput)
	}
	key, err := storage.CleanKey(locator)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("%w: invalid file path", inbox_errors.ErrInvalidInput)
	}

	caller, err := s.identities.ResolveIdentity(ctx, callerID)
	if err != nil {
		return DownloadResult{}, err
	}
	if err := s.authorizeDownload(ctx, caller, key); err != nil {
		return DownloadResult{}, err
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return DownloadResult{}, err
	}
	name := path.Base(key)
	hint, ok := MimeHintFor(name)
	if !ok {
		hint = "application/octet-stream"
	}
	return DownloadResult{Name: name, MimeHint: hint, Data: data}, nil
}

func (s *AttachmentService) authorizeDownload(ctx context.Context, caller user.Identity, key string) error {
	parts := strings.Split(key, "/")
	if parts[0] == tempScope {
		if len(parts) != 3 || parts[1] != caller.ID.String() {
			return inbox_errors.ErrForbidden
		}
		return nil
	}
	if len(parts) != 2 {
		return inbox_errors.ErrNotFound
	}
	conversationID, err := uuid.Parse(parts[0])
	if err != nil {
		return inbox_errors.ErrNotFound
	}
	_, err = s.access.CanViewConversation(ctx, caller, conversationID)
	return err
}
